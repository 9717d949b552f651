// Package evidence defines the evidence document domain model and the
// loader that reads structured evidence files from disk.
package evidence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for evidence loading.
var (
	// ErrValidation indicates a document with missing or malformed metadata.
	ErrValidation = errors.New("invalid evidence document")

	// ErrNotFound indicates the evidence directory does not exist.
	ErrNotFound = errors.New("evidence directory not found")
)

// MaxStrength is the upper bound of the Maryland Scientific Methods Scale.
const MaxStrength = 5

// Strength is an ordinal 0-5 rating of evidentiary rigor
// (Maryland Scientific Methods Scale).
type Strength int

// UnmarshalYAML accepts both quoted ("4") and bare (4) front-matter values.
func (s *Strength) UnmarshalYAML(b []byte) error {
	v, err := ParseStrength(string(b))
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("strength cannot be empty")
	}
	*s = *v
	return nil
}

// Int returns the numeric rating.
func (s Strength) Int() int { return int(s) }

// ParseStrength parses a strength rating from a raw string value.
// Returns nil for an empty value; errors on non-numeric or out-of-range input.
func ParseStrength(raw string) (*Strength, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"'`)
	if trimmed == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, fmt.Errorf("strength must be numeric, got %q", raw)
	}
	if n < 0 || n > MaxStrength {
		return nil, fmt.Errorf("strength must be 0-%d, got %d", MaxStrength, n)
	}
	s := Strength(n)
	return &s, nil
}

// Result is one intervention -> outcome_variable pair reported by a document,
// with an optional categorical outcome tag.
type Result struct {
	Intervention    string `yaml:"intervention" json:"intervention"`
	OutcomeVariable string `yaml:"outcome_variable" json:"outcome_variable"`
	Outcome         string `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}

// Document is a single piece of research literature with structured metadata.
// Documents are immutable once loaded; re-ingestion supersedes, never mutates.
type Document struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Date          string   `json:"date"`
	Body          string   `json:"-"`
	Results       []Result `json:"results,omitempty"`
	Strength      *Strength `json:"strength,omitempty"`
	Citations     []string `json:"citations,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Methodologies string   `json:"methodologies,omitempty"`
	Datasets      []string `json:"datasets,omitempty"`
}

// Validate checks the metadata required for indexing.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrValidation)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: %s: missing title", ErrValidation, d.ID)
	}
	if strings.TrimSpace(d.Body) == "" {
		return fmt.Errorf("%w: %s: empty body", ErrValidation, d.ID)
	}
	return nil
}

// Citation returns the primary citation for display, or empty if none.
func (d *Document) Citation() string {
	if len(d.Citations) == 0 {
		return ""
	}
	return d.Citations[0]
}

// LoadError records a document that could not be loaded or validated.
type LoadError struct {
	DocumentID string `json:"documentId"`
	Message    string `json:"message"`
}
