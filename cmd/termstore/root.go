package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/termstore/pkg/composables"
	"github.com/iota-uz/termstore/pkg/configuration"
	"github.com/iota-uz/termstore/pkg/metrics"
)

type rootOptions struct {
	envFiles    []string
	metricsAddr string

	conf *configuration.Configuration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "termstore",
		Short:         "Terminology store import, lookup and migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conf, err := configuration.Load(opts.envFiles...)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
			}
			opts.conf = conf

			log := logrus.NewEntry(conf.Logger()).WithField("command", cmd.Name())
			ctx := composables.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			if addr := opts.metricsAddr; addr != "" {
				go func() {
					if err := metrics.Serve(ctx, addr, conf.Prometheus.Path, log); err != nil {
						log.WithError(err).Error("metrics endpoint stopped")
					}
				}()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env", ".env.local"}, "Env files to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while the command runs")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
