// Package report turns an engine Summary into the JSON quality report and
// reads such reports back.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/bfv/rulecheck/internal/engine"
)

// FileName is the name of the report written into the output directory.
const FileName = "data_quality_report.json"

// Report is the serialized form of a Summary.
type Report struct {
	RowsChecked    int           `json:"rows_checked"`
	MissingColumns []string      `json:"missing_columns"`
	IssueCounts    IssueCounts   `json:"issue_counts"`
	SampleIssues   []SampleIssue `json:"sample_issues"`
}

// IssueCounts always carries all four kinds, in this order.
type IssueCounts struct {
	MissingColumn       int `json:"MissingColumn"`
	NonNumericValue     int `json:"NonNumericValue"`
	RangeViolation      int `json:"RangeViolation"`
	CrossFieldViolation int `json:"CrossFieldViolation"`
}

// Get returns the count for the kind named k.
func (c IssueCounts) Get(k engine.Kind) int {
	return engine.IssueCounts(c).Get(k)
}

// Total sums all kinds.
func (c IssueCounts) Total() int {
	return engine.IssueCounts(c).Total()
}

// SampleIssue is one retained issue.
type SampleIssue struct {
	Row     int      `json:"row"`
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
	Message string   `json:"message"`
}

// FromSummary converts a Summary. Slices are never nil so the JSON shape is fixed.
func FromSummary(s *engine.Summary) Report {
	r := Report{
		RowsChecked:    s.RowsChecked,
		MissingColumns: append([]string{}, s.MissingColumns...),
		IssueCounts:    IssueCounts(s.IssueCounts),
		SampleIssues:   make([]SampleIssue, 0, len(s.SampleIssues)),
	}
	for _, is := range s.SampleIssues {
		r.SampleIssues = append(r.SampleIssues, SampleIssue{
			Row:     is.Row,
			Kind:    is.Kind.String(),
			Columns: append([]string{}, is.Columns...),
			Message: is.Message,
		})
	}
	return r
}

// Marshal renders the report as indented JSON with a trailing newline.
// HTML escaping is off so comparison operators stay readable in messages.
func Marshal(r Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("marshalling report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores the report for s as dir/FileName, creating dir if needed,
// and returns the path written.
func Write(fs afero.Fs, dir string, s *engine.Summary) (string, error) {
	data, err := Marshal(FromSummary(s))
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %q: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("report written")
	return path, nil
}

// Read loads a report written by Write.
func Read(fs afero.Fs, path string) (*Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading report %q: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %q: %w", path, err)
	}
	for _, is := range r.SampleIssues {
		if _, ok := engine.ParseKind(is.Kind); !ok {
			return nil, fmt.Errorf("decoding report %q: unknown issue kind %q", path, is.Kind)
		}
	}
	return &r, nil
}
