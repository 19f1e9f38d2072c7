package caleval

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/BirteA/NTXQC-playground/annotate"
)

// LoadExport re-loads a cal-mode export written by the import pipeline. The
// header is checked against the cal export contract before unmarshaling, so
// a samples export or a foreign CSV fails with SchemaMismatchError instead
// of importing as zero values.
func LoadExport(path string) ([]annotate.CalRecord, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	header, err := csv.NewReader(bytes.NewReader(contents)).Read()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if want := annotate.CalHeader(); !annotate.SameColumnSet(want, header) {
		return nil, &annotate.SchemaMismatchError{Want: want, Got: header}
	}

	out := []annotate.CalRecord{}
	if err := gocsv.UnmarshalCSV(csv.NewReader(bytes.NewReader(contents)), &out); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// WriteExport writes the evaluated table as a comma-delimited file with a
// header row, creating the parent directory.
func WriteExport(records []EvaluatedRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pfx.Err(err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if err := gocsv.Marshal(&records, f); err != nil {
		return pfx.Err(err)
	}

	return nil
}
