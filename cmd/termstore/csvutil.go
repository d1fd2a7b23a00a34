package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"
)

// csvRecord is one data row with its 1-based line number.
type csvRecord struct {
	line   int
	fields []string
	index  map[string]int
}

func (r csvRecord) get(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// readCSV reads a headered CSV file, rejecting missing required columns and
// columns outside allowed.
func readCSV(path string, required, allowed []string) ([]csvRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(stripUTF8BOM(bufio.NewReader(f)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if !utf8.ValidString(h) {
			return nil, fmt.Errorf("invalid header encoding")
		}
		index[h] = i
	}
	if err := checkHeader(index, required, allowed); err != nil {
		return nil, err
	}

	var out []csvRecord
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		out = append(out, csvRecord{line: line, fields: rec, index: index})
	}
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func checkHeader(index map[string]int, required, allowed []string) error {
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("missing required header column: %s", name)
		}
	}
	for name := range index {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("unexpected header column: %s", name)
		}
	}
	return nil
}
