package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/termstore/pkg/database"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the terminology schema",
	}

	run := func(fn func(ctx context.Context, m *database.Migrator, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := database.Open(ctx, root.conf.Database)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer db.Close()

			m, err := database.NewMigrator(db.SQL.DB, database.MigrationsFS(root.conf.MigrationsDir))
			if err != nil {
				return withCode(exitDB, err)
			}
			return fn(ctx, m, cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: run(func(ctx context.Context, m *database.Migrator, out io.Writer) error {
			results, err := m.Up(ctx)
			for _, r := range results {
				if wErr := writeJSONLine(out, newMigrationLine(r)); wErr != nil {
					return wErr
				}
			}
			return withCode(exitDBWrite, err)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: run(func(ctx context.Context, m *database.Migrator, out io.Writer) error {
			r, err := m.Down(ctx)
			if r != nil {
				if wErr := writeJSONLine(out, newMigrationLine(r)); wErr != nil {
					return wErr
				}
			}
			return withCode(exitDBWrite, err)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print migration status",
		RunE: run(func(ctx context.Context, m *database.Migrator, out io.Writer) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, st := range statuses {
				line := migrationLine{State: string(st.State)}
				if st.Source != nil {
					line.Version = st.Source.Version
					line.Path = st.Source.Path
				}
				if !st.AppliedAt.IsZero() {
					line.AppliedAt = st.AppliedAt.UTC().Format("2006-01-02T15:04:05Z")
				}
				if err := writeJSONLine(out, line); err != nil {
					return err
				}
			}
			return nil
		}),
	})
	return cmd
}

type migrationLine struct {
	Version   int64  `json:"version"`
	Path      string `json:"path"`
	Direction string `json:"direction,omitempty"`
	State     string `json:"state,omitempty"`
	AppliedAt string `json:"applied_at,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newMigrationLine(r *goose.MigrationResult) migrationLine {
	line := migrationLine{Direction: r.Direction, Duration: r.Duration.String()}
	if r.Source != nil {
		line.Version = r.Source.Version
		line.Path = r.Source.Path
	}
	if r.Error != nil {
		line.Error = fmt.Sprint(r.Error)
	}
	return line
}
