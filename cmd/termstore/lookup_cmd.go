package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/services"
)

type lookupOptions struct {
	system   string
	code     string
	property string
}

func newLookupCmd(root *rootOptions) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Print a concept and its property values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.system, "system", "", "Code system URL (required)")
	cmd.Flags().StringVar(&opts.code, "code", "", "Concept code (required)")
	cmd.Flags().StringVar(&opts.property, "property", "", "Only print values of this property")
	_ = cmd.MarkFlagRequired("system")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

type lookupValue struct {
	Property   string `json:"property"`
	Value      string `json:"value"`
	TargetID   string `json:"target_id,omitempty"`
	TargetCode string `json:"target_code,omitempty"`
}

type lookupOutput struct {
	System     string        `json:"system"`
	ID         string        `json:"id"`
	Code       string        `json:"code"`
	Display    string        `json:"display"`
	Synonym    bool          `json:"synonym"`
	Properties []lookupValue `json:"properties"`
}

func runLookup(ctx context.Context, root *rootOptions, opts lookupOptions, out io.Writer) error {
	a, err := newApp(ctx, root.conf)
	if err != nil {
		return err
	}
	defer a.close()

	view, err := a.lookup.Concept(ctx, opts.system, opts.code, opts.property)
	if err != nil {
		return lookupError(err)
	}
	return writeJSONLine(out, newLookupOutput(opts.system, view))
}

func lookupError(err error) error {
	if errors.Is(err, codesystem.ErrNotFound) || errors.Is(err, concept.ErrNotFound) {
		return withCode(exitValidation, err)
	}
	return withCode(exitDB, fmt.Errorf("lookup: %w", err))
}

func newLookupOutput(system string, view *services.ConceptView) lookupOutput {
	o := lookupOutput{
		System:     system,
		ID:         view.Concept.ID.String(),
		Code:       view.Concept.Code,
		Display:    view.Concept.Display,
		Synonym:    view.Concept.IsSynonym,
		Properties: make([]lookupValue, 0, len(view.Properties)),
	}
	for _, v := range view.Properties {
		lv := lookupValue{Property: v.PropertyCode, Value: v.Value, TargetCode: v.TargetCode}
		if v.TargetID != nil {
			lv.TargetID = v.TargetID.String()
		}
		o.Properties = append(o.Properties, lv)
	}
	return o
}
