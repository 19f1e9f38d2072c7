// Package rawtable reads one instrument quantification export: a delimited
// table with a header row. Column names vary between instrument software
// versions, so the intensity and nucleotide columns are located by substring
// match and renamed onto a fixed schema.
package rawtable

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/csimplestring/go-csv/detector"
)

// Row is one quantified transition from an instrument export, renamed onto
// the pipeline schema: nuc_nb, transition, median_intensity, cv.
type Row struct {
	NucNB           string
	Transition      string
	MedianIntensity float64
	CV              float64
}

// SchemaError reports a header in which a required column pattern matched no
// column, or matched more than one. The original tooling renamed every match,
// silently overwriting columns; here an ambiguous match is an error.
type SchemaError struct {
	Pattern string
	Matches []string
}

func (e *SchemaError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no header column matches %q", e.Pattern)
	}
	return fmt.Sprintf("header pattern %q is ambiguous: matches %v", e.Pattern, e.Matches)
}

// ParseError reports a cell that failed numeric conversion.
type ParseError struct {
	Line   int
	Column string
	Value  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: column %s: cannot parse %q as a non-negative number", e.Line, e.Column, e.Value)
}

// LoadFile reads one export file. See Load.
func LoadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return Load(f)
}

// Load reads a delimited table with a header row. The delimiter is sniffed;
// when no single-character delimiter wins, runs of whitespace separate the
// fields, which matches the space-padded export format of the instrument.
func Load(r io.Reader) ([]Row, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	lines, err := splitTable(contents)
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, &SchemaError{Pattern: "median"}
	}

	cols, err := mapHeader(lines[0])
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(lines)-1)
	for i, fields := range lines[1:] {
		lineNum := i + 2 // 1-based, after the header

		row := Row{
			NucNB:      fields[cols.nucNB],
			Transition: fields[cols.transition],
		}

		row.MedianIntensity, err = strconv.ParseFloat(fields[cols.median], 64)
		if err != nil || row.MedianIntensity < 0 {
			return nil, &ParseError{Line: lineNum, Column: "median_intensity", Value: fields[cols.median]}
		}

		row.CV, err = strconv.ParseFloat(fields[cols.cv], 64)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Column: "cv", Value: fields[cols.cv]}
		}

		out = append(out, row)
	}

	return out, nil
}

type columnIndexes struct {
	nucNB, transition, median, cv int
}

// mapHeader locates the fixed-schema columns in a header row. The intensity
// column is whichever single column name contains "median"; the nucleotide
// column is whichever single one contains "nuc"; transition likewise. cv is
// matched by exact name.
func mapHeader(header []string) (columnIndexes, error) {
	cols := columnIndexes{}

	var err error
	if cols.median, err = findOne(header, "median"); err != nil {
		return cols, err
	}
	if cols.nucNB, err = findOne(header, "nuc"); err != nil {
		return cols, err
	}
	if cols.transition, err = findOne(header, "transition"); err != nil {
		return cols, err
	}

	cols.cv = -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "cv") {
			cols.cv = i
			break
		}
	}
	if cols.cv < 0 {
		return cols, &SchemaError{Pattern: "cv"}
	}

	return cols, nil
}

func findOne(header []string, pattern string) (int, error) {
	found := -1
	matches := []string{}

	for i, name := range header {
		if strings.Contains(strings.ToLower(name), pattern) {
			found = i
			matches = append(matches, name)
		}
	}

	if len(matches) != 1 {
		return -1, &SchemaError{Pattern: pattern, Matches: matches}
	}

	return found, nil
}

// splitTable breaks the raw bytes into field slices, one per non-empty line.
// Every data line must have as many fields as the header.
func splitTable(contents []byte) ([][]string, error) {
	delim := detectDelimiter(bytes.NewReader(contents))

	var lines [][]string

	if delim == 0 || delim == ' ' {
		scanner := bufio.NewScanner(bytes.NewReader(contents))
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			lines = append(lines, fields)
		}
		if err := scanner.Err(); err != nil {
			return nil, pfx.Err(err)
		}
	} else {
		cr := csv.NewReader(bytes.NewReader(contents))
		cr.Comma = delim
		cr.TrimLeadingSpace = true

		var err error
		lines, err = cr.ReadAll()
		if err != nil {
			return nil, pfx.Err(err)
		}
	}

	for i, fields := range lines {
		if i > 0 && len(fields) != len(lines[0]) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", i+1, len(fields), len(lines[0]))
		}
	}

	return lines, nil
}

// detectDelimiter returns the single most likely delimiter rune, or 0 when
// the detector finds none (whitespace-padded tables).
func detectDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return 0
}
