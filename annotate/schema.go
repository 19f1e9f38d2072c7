package annotate

import (
	"fmt"
	"sort"
)

// TrueBlank is the calibration-curve name of the analyte-free background
// sample, as written by the acquisition template.
const TrueBlank = "TrueBlank"

// CalHeader is the cal-mode export column set, in order. It is part of the
// external file contract: downstream tools re-load the export by these names.
func CalHeader() []string {
	return []string{"nuc_id", "nuc", "nuc_group", "transition_id", "calcurve", "level", "repl_calcurve", "date", "median_intensity", "cv"}
}

// SampleHeader is the samples-mode export column set, in order.
func SampleHeader() []string {
	return []string{"date", "file_tag", "sample", "nuc_id", "nuc", "transition_id", "median_intensity", "cv"}
}

// SchemaMismatchError reports a table whose column set deviates from an
// expected schema, e.g. a re-loaded export produced by a different mode or
// tool version.
type SchemaMismatchError struct {
	Want []string
	Got  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("column set mismatch: want %v, got %v", e.Want, e.Got)
}

// SameColumnSet reports whether two headers contain the same column names,
// ignoring order.
func SameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)

	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}

	return true
}
