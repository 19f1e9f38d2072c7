// Package reftab loads the two reference tables the pipeline annotates
// against: the nucleotide conversion list and the condition list. Both are
// small, curated delimited files maintained alongside the instrument methods.
package reftab

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/csimplestring/go-csv/detector"
	"github.com/gocarina/gocsv"
)

// ConversionEntry maps an instrument-local nucleotide number to its identity.
// Sample is only populated in samples-mode conversion lists.
type ConversionEntry struct {
	NucNB    string `csv:"nuc_nb"`
	NucID    string `csv:"nuc_id"`
	Nuc      string `csv:"nuc"`
	NucGroup string `csv:"nuc_group"`
	Sample   string `csv:"sample"`
}

// ConditionEntry annotates a calibration curve (cal mode: calcurve, level) or
// a sample file tag (samples mode: file_tag, sample).
type ConditionEntry struct {
	Calcurve string `csv:"calcurve"`
	Level    int    `csv:"level"`
	FileTag  string `csv:"file_tag"`
	Sample   string `csv:"sample"`
}

// LoadConversion reads a conversion list. Comma- and tab-delimited lists both
// occur in practice, so the delimiter is sniffed.
func LoadConversion(path string) ([]ConversionEntry, error) {
	out := []ConversionEntry{}
	if err := unmarshalSniffed(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadCondition reads a condition list.
func LoadCondition(path string) ([]ConditionEntry, error) {
	out := []ConditionEntry{}
	if err := unmarshalSniffed(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConversionByNucNB indexes a conversion list by its join key. A duplicated
// key keeps the first entry.
func ConversionByNucNB(entries []ConversionEntry) map[string]ConversionEntry {
	out := make(map[string]ConversionEntry, len(entries))
	for _, e := range entries {
		if _, exists := out[e.NucNB]; exists {
			continue
		}
		out[e.NucNB] = e
	}
	return out
}

// ConditionByCalcurve indexes a condition list by calibration curve identity.
func ConditionByCalcurve(entries []ConditionEntry) map[string]ConditionEntry {
	out := make(map[string]ConditionEntry, len(entries))
	for _, e := range entries {
		if _, exists := out[e.Calcurve]; exists {
			continue
		}
		out[e.Calcurve] = e
	}
	return out
}

// ConditionByFileTag indexes a condition list by sample file tag.
func ConditionByFileTag(entries []ConditionEntry) map[string]ConditionEntry {
	out := make(map[string]ConditionEntry, len(entries))
	for _, e := range entries {
		if _, exists := out[e.FileTag]; exists {
			continue
		}
		out[e.FileTag] = e
	}
	return out
}

func unmarshalSniffed(path string, out interface{}) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return pfx.Err(err)
	}

	r := csv.NewReader(bytes.NewReader(contents))
	r.Comma = determineDelimiter(bytes.NewReader(contents))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	if err := gocsv.UnmarshalCSV(r, out); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// determineDelimiter returns the single most likely delimiting rune for a
// CSV-like reader, defaulting to a comma.
func determineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}
