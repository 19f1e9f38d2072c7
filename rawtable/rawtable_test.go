package rawtable

import (
	"errors"
	"strings"
	"testing"
)

const whitespaceTable = `Nucleotide  Transition  Median_Rel_Intensity  CV
1           101         1500.5                0.03
2           102         980                   0.12
`

const tabTable = "nuc_number\ttransition\tmedian\tcv\n3\t201\t44.5\t0.5\n"

func TestLoadWhitespace(t *testing.T) {
	rows, err := Load(strings.NewReader(whitespaceTable))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Row{
		{NucNB: "1", Transition: "101", MedianIntensity: 1500.5, CV: 0.03},
		{NucNB: "2", Transition: "102", MedianIntensity: 980, CV: 0.12},
	}

	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d:\ngot:  %+v\nwant: %+v", i, rows[i], want[i])
		}
	}
}

func TestLoadTab(t *testing.T) {
	rows, err := Load(strings.NewReader(tabTable))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if want := (Row{NucNB: "3", Transition: "201", MedianIntensity: 44.5, CV: 0.5}); rows[0] != want {
		t.Fatalf("got %+v, want %+v", rows[0], want)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	in := "id  transition  intensity  cv\n1  101  5  0.1\n"
	_, err := Load(strings.NewReader(in))

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Pattern != "median" {
		t.Fatalf("expected pattern median, got %q", schemaErr.Pattern)
	}
}

func TestLoadAmbiguousColumn(t *testing.T) {
	// Two columns contain "median": the original tooling renamed both,
	// silently overwriting one. Here it must fail.
	in := "nuc  transition  median_raw  median_smoothed  cv\n1  101  5  6  0.1\n"
	_, err := Load(strings.NewReader(in))

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Matches) != 2 {
		t.Fatalf("expected 2 ambiguous matches, got %v", schemaErr.Matches)
	}
}

func TestLoadBadNumbers(t *testing.T) {
	for _, in := range []string{
		"nuc  transition  median  cv\n1  101  high  0.1\n",
		"nuc  transition  median  cv\n1  101  -4  0.1\n", // negative intensity
		"nuc  transition  median  cv\n1  101  5  n/a\n",
	} {
		_, err := Load(strings.NewReader(in))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("input %q: expected ParseError, got %v", in, err)
		}
	}
}

func TestLoadRaggedTable(t *testing.T) {
	in := "nuc  transition  median  cv\n1  101  5\n"
	if _, err := Load(strings.NewReader(in)); err == nil {
		t.Fatal("expected an error for a ragged table")
	}
}
