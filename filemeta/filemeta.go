// Package filemeta extracts run metadata from instrument export file names.
// The acquisition software encodes metadata in underscore-delimited tokens,
// e.g. 20190412_NTX_cal_mix1_2.unknown.
package filemeta

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Mode selects which tokens of the file name carry meaning.
type Mode string

const (
	ModeCal     Mode = "cal"
	ModeSamples Mode = "samples"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCal, ModeSamples:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (expected %q or %q)", s, ModeCal, ModeSamples)
}

// Metadata holds the fields recovered from one file name. Calcurve and
// ReplCalcurve are populated in cal mode, FileTag in samples mode.
type Metadata struct {
	Date         string
	Calcurve     string
	ReplCalcurve int
	FileTag      string
}

// MalformedFileNameError reports a file name with fewer underscore-delimited
// tokens than the mode requires.
type MalformedFileNameError struct {
	Name   string
	Mode   Mode
	Need   int
	Tokens int
}

func (e *MalformedFileNameError) Error() string {
	return fmt.Sprintf("file name %q: %s mode needs at least %d underscore-delimited tokens, found %d", e.Name, e.Mode, e.Need, e.Tokens)
}

// ParseError reports a token that failed numeric conversion.
type ParseError struct {
	Name  string
	Field string
	Value string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("file name %q: field %s: cannot parse %q as a number: %v", e.Name, e.Field, e.Value, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse splits the base name of path on underscores and recovers the
// mode-specific metadata fields. In cal mode the replicate token is the part
// of token 4 before the first dot, so a trailing extension does not leak into
// the replicate number.
func Parse(path string, mode Mode) (Metadata, error) {
	name := filepath.Base(path)
	tokens := strings.Split(name, "_")

	meta := Metadata{}

	switch mode {
	case ModeCal:
		if need := 5; len(tokens) < need {
			return meta, &MalformedFileNameError{Name: name, Mode: mode, Need: need, Tokens: len(tokens)}
		}

		meta.Date = tokens[0]
		meta.Calcurve = tokens[3]

		replToken := strings.Split(tokens[4], ".")[0]
		repl, err := strconv.Atoi(replToken)
		if err != nil {
			return meta, &ParseError{Name: name, Field: "repl_calcurve", Value: replToken, Cause: err}
		}
		meta.ReplCalcurve = repl

	case ModeSamples:
		if need := 3; len(tokens) < need {
			return meta, &MalformedFileNameError{Name: name, Mode: mode, Need: need, Tokens: len(tokens)}
		}

		meta.Date = tokens[0]
		// The tag may be the trailing token and carry the extension.
		meta.FileTag = strings.Split(tokens[2], ".")[0]

	default:
		return meta, fmt.Errorf("unknown mode %q", mode)
	}

	return meta, nil
}
