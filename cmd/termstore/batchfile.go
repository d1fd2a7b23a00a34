package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iota-uz/termstore/modules/terminology/services"
)

const (
	conceptsCSV   = "concepts.csv"
	propertiesCSV = "properties.csv"
)

// loadBatch reads the batch named by --file or --input. --system overrides
// the system of a batch file and is required for CSV input.
func loadBatch(file, inputDir, system string) (services.ImportRequest, error) {
	var req services.ImportRequest
	switch {
	case file != "" && inputDir != "":
		return req, withCode(exitUsage, fmt.Errorf("--file and --input are mutually exclusive"))
	case file != "":
		if err := readBatchFile(file, &req); err != nil {
			return req, err
		}
	case inputDir != "":
		if strings.TrimSpace(system) == "" {
			return req, withCode(exitUsage, fmt.Errorf("--system is required with --input"))
		}
		if err := readBatchDir(inputDir, &req); err != nil {
			return req, err
		}
	default:
		return req, withCode(exitUsage, fmt.Errorf("one of --file or --input is required"))
	}

	if s := strings.TrimSpace(system); s != "" {
		req.SystemURL = s
	}
	if strings.TrimSpace(req.SystemURL) == "" {
		return req, withCode(exitValidation, fmt.Errorf("batch does not name a code system"))
	}
	return req, nil
}

func readBatchFile(path string, out *services.ImportRequest) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(out)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		err = dec.Decode(out)
	default:
		return withCode(exitUsage, fmt.Errorf("unsupported batch file extension %q (expected .json, .yaml or .yml)", filepath.Ext(path)))
	}
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func readBatchDir(dir string, out *services.ImportRequest) error {
	concepts, err := parseConceptsCSVIfExists(filepath.Join(dir, conceptsCSV))
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("%s: %w", conceptsCSV, err))
	}
	properties, err := parsePropertiesCSVIfExists(filepath.Join(dir, propertiesCSV))
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("%s: %w", propertiesCSV, err))
	}
	if concepts == nil && properties == nil {
		return withCode(exitUsage, fmt.Errorf("%s contains neither %s nor %s", dir, conceptsCSV, propertiesCSV))
	}
	out.Concepts = concepts
	out.Properties = properties
	return nil
}

func parseConceptsCSVIfExists(path string) ([]services.ConceptItem, error) {
	records, err := readCSV(path, []string{"code"}, []string{"code", "display", "synonym"})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]services.ConceptItem, 0, len(records))
	for _, rec := range records {
		code := strings.TrimSpace(rec.get("code"))
		if code == "" {
			return nil, fmt.Errorf("line %d: code is required", rec.line)
		}
		synonym := false
		if raw := strings.TrimSpace(rec.get("synonym")); raw != "" {
			synonym, err = strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: synonym: %w", rec.line, err)
			}
		}
		items = append(items, services.ConceptItem{
			Code:      code,
			Display:   strings.TrimSpace(rec.get("display")),
			IsSynonym: synonym,
		})
	}
	return items, nil
}

func parsePropertiesCSVIfExists(path string) ([]services.PropertyItem, error) {
	records, err := readCSV(path, []string{"subject", "property", "value"}, []string{"subject", "property", "value"})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]services.PropertyItem, 0, len(records))
	for _, rec := range records {
		item := services.PropertyItem{
			Subject:  strings.TrimSpace(rec.get("subject")),
			Property: strings.TrimSpace(rec.get("property")),
			Value:    rec.get("value"),
		}
		if item.Subject == "" {
			return nil, fmt.Errorf("line %d: subject is required", rec.line)
		}
		if item.Property == "" {
			return nil, fmt.Errorf("line %d: property is required", rec.line)
		}
		items = append(items, item)
	}
	return items, nil
}
