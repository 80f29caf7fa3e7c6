package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EncoderTable maps categorical field values to the integer codes the
// model was fit on. It is immutable once loaded.
//
// Lookups never fail: an unknown field or unknown category degrades to
// code 0. That mirrors the behavior of the label encoders the model
// shipped with and keeps old batch exports scoreable, but it means a
// typo silently lands on whichever category was coded 0. Known
// correctness risk, kept for compatibility.
type EncoderTable struct {
	fields map[string]map[string]int
	byFold map[string]string // lower(field) -> canonical field
}

// LoadEncoders reads the encoder artifact: JSON of field -> category -> code.
func LoadEncoders(path string) (*EncoderTable, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoder artifact %s: %w", path, err)
	}
	var raw map[string]map[string]int
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse encoder artifact %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, errors.New("encoder artifact is empty")
	}

	table := &EncoderTable{
		fields: make(map[string]map[string]int, len(raw)),
		byFold: make(map[string]string, len(raw)),
	}
	for field, categories := range raw {
		folded := make(map[string]int, len(categories))
		for category, code := range categories {
			folded[strings.ToLower(category)] = code
		}
		table.fields[field] = folded
		table.byFold[strings.ToLower(field)] = field
	}
	return table, nil
}

// Encode looks up the code for a field/category pair. Exact field name
// match is preferred, then a case-insensitive match; anything unknown
// returns 0.
func (t *EncoderTable) Encode(field, value string) int {
	if t == nil {
		return 0
	}
	categories, ok := t.fields[field]
	if !ok {
		canonical, found := t.byFold[strings.ToLower(field)]
		if !found {
			return 0
		}
		categories = t.fields[canonical]
	}
	code, ok := categories[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return 0
	}
	return code
}

// Fields returns the field names the table holds encoders for.
func (t *EncoderTable) Fields() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	return names
}

// NewEncoderTable builds a table directly from a field -> category -> code
// mapping. Used by the training CLI and tests.
func NewEncoderTable(raw map[string]map[string]int) *EncoderTable {
	table := &EncoderTable{
		fields: make(map[string]map[string]int, len(raw)),
		byFold: make(map[string]string, len(raw)),
	}
	for field, categories := range raw {
		folded := make(map[string]int, len(categories))
		for category, code := range categories {
			folded[strings.ToLower(category)] = code
		}
		table.fields[field] = folded
		table.byFold[strings.ToLower(field)] = field
	}
	return table
}

// SaveEncoders writes the artifact format LoadEncoders reads.
func SaveEncoders(path string, raw map[string]map[string]int) error {
	if len(raw) == 0 {
		return errors.New("no encoders to save")
	}
	payload, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
