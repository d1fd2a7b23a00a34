package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/termstore/modules/terminology/services"
)

type importOptions struct {
	file     string
	inputDir string
	system   string
	apply    bool

	as            string
	superAdmin    bool
	projectAdmins []uuid.UUID
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions
	var projectAdmins []string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a concept/property batch into a code system",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseProjectIDs(projectAdmins)
			if err != nil {
				return withCode(exitUsage, err)
			}
			opts.projectAdmins = ids
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Batch file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.inputDir, "input", "", "Input directory containing concepts.csv and/or properties.csv")
	cmd.Flags().StringVar(&opts.system, "system", "", "Code system URL (required with --input, overrides the batch file)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Commit the batch (default is dry-run)")
	cmd.Flags().StringVar(&opts.as, "as", "cli", "Subject name recorded for the import")
	cmd.Flags().BoolVar(&opts.superAdmin, "superadmin", false, "Import with unrestricted privilege")
	cmd.Flags().StringSliceVar(&projectAdmins, "project-admin", nil, "Project UUID the caller administers (repeatable)")

	return cmd
}

func parseProjectIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid --project-admin %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (o importOptions) identity() services.StaticIdentity {
	return services.StaticIdentity{Name: o.as, SuperAdmin: o.superAdmin, AdminOf: o.projectAdmins}
}

func (o importOptions) source() string {
	if o.file != "" {
		return o.file
	}
	return o.inputDir
}

func runImport(ctx context.Context, root *rootOptions, opts importOptions, out io.Writer) error {
	req, err := loadBatch(opts.file, opts.inputDir, opts.system)
	if err != nil {
		return err
	}
	req.DryRun = !opts.apply

	a, err := newApp(ctx, root.conf)
	if err != nil {
		return err
	}
	defer a.close()

	identity := opts.identity()
	res, importErr := a.importer.Import(ctx, identity, req)
	if err := writeJSONLine(out, newImportSummary(req, opts, identity, res, importErr)); err != nil {
		return err
	}
	return importErr
}

type importErrorSummary struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Stage   string `json:"stage"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

type importSummary struct {
	Status  string `json:"status"`
	System  string `json:"system"`
	Source  string `json:"source"`
	Apply   bool   `json:"apply"`
	Subject string `json:"subject"`
	Counts  struct {
		ConceptsRows   int `json:"concepts_rows"`
		PropertiesRows int `json:"properties_rows"`
	} `json:"counts"`
	Result *services.ImportResult `json:"result,omitempty"`
	Error  *importErrorSummary    `json:"error,omitempty"`
}

func newImportSummary(req services.ImportRequest, opts importOptions, identity services.Identity, res *services.ImportResult, err error) importSummary {
	s := importSummary{
		Status:  string(services.StateRejected),
		System:  req.SystemURL,
		Source:  opts.source(),
		Apply:   opts.apply,
		Subject: identity.Subject(),
		Result:  res,
	}
	s.Counts.ConceptsRows = len(req.Concepts)
	s.Counts.PropertiesRows = len(req.Properties)
	if res != nil {
		s.Status = string(res.State)
	}
	if ie, ok := services.AsImportError(err); ok {
		s.Error = &importErrorSummary{
			Kind:    string(ie.Kind),
			Code:    ie.Code,
			Stage:   string(ie.Stage),
			Value:   ie.Value,
			Message: ie.Message,
		}
	}
	return s
}
