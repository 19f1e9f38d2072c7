package importqc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BirteA/NTXQC-playground/caleval"
	"github.com/BirteA/NTXQC-playground/filemeta"
)

const calTable = `nuc_nb  transition  median_int  cv
1       101         1500.5      0.03
2       102         980         0.12
`

const blankTable = `nuc_nb  transition  median_int  cv
1       101         12          0.40
2       102         8           0.55
`

const convList = "nuc_nb,nuc_id,nuc,nuc_group\n1,AMP,adenosine-mp,purine\n2,UMP,uridine-mp,pyrimidine\n"

const condList = "calcurve,level\nmix1,10\nmix2,5\n"

// calFixture lays out a cal-mode input directory plus reference tables and
// returns ready-to-run options writing into the same temp tree.
func calFixture(t *testing.T) Options {
	t.Helper()
	tmp := t.TempDir()

	inputDir := filepath.Join(tmp, "input", "cal")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"20190412_NTX_cal_mix1_1.unknown":      calTable,
		"20190412_NTX_cal_TrueBlank_1.unknown": blankTable,
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	convPath := filepath.Join(tmp, "conv_list.csv")
	if err := os.WriteFile(convPath, []byte(convList), 0o644); err != nil {
		t.Fatal(err)
	}
	condPath := filepath.Join(tmp, "condition_list.csv")
	if err := os.WriteFile(condPath, []byte(condList), 0o644); err != nil {
		t.Fatal(err)
	}

	return Options{
		InputDir:       inputDir,
		Mode:           filemeta.ModeCal,
		ConversionPath: convPath,
		ConditionPath:  condPath,
		OutputPath:     filepath.Join(tmp, "output", "cal_export.csv"),
	}
}

func TestRunCal(t *testing.T) {
	opts := calFixture(t)

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Rows() != 4 {
		t.Fatalf("got %d rows, want 4", res.Rows())
	}
	if len(res.FileErrors) != 0 {
		t.Fatalf("unexpected file errors: %v", res.FileErrors)
	}

	// The TrueBlank file has no condition entry, so its rows carry no level;
	// the mix1 rows carry level 10.
	var blanks, leveled int
	for _, rec := range res.Cal {
		switch {
		case rec.Calcurve == "TrueBlank" && rec.Level == nil:
			blanks++
		case rec.Calcurve == "mix1" && rec.Level != nil && *rec.Level == 10:
			leveled++
		}
	}
	if blanks != 2 || leveled != 2 {
		t.Fatalf("got %d blank and %d leveled rows, want 2 and 2", blanks, leveled)
	}
}

func TestRunRoundTrip(t *testing.T) {
	opts := calFixture(t)

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := caleval.LoadExport(res.OutputPath)
	if err != nil {
		t.Fatalf("re-loading the export: %v", err)
	}

	if len(reloaded) != res.Rows() {
		t.Fatalf("round trip changed the row count: wrote %d, read %d", res.Rows(), len(reloaded))
	}
}

func TestRunIdempotent(t *testing.T) {
	opts := calFixture(t)

	if _, err := Run(opts); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Run(opts); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("two runs over an unchanged directory produced different exports")
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	opts := calFixture(t)

	empty := filepath.Join(t.TempDir(), "cal")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	opts.InputDir = empty
	opts.OutputPath = filepath.Join(empty, "cal_export.csv")

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("an empty input directory must not be an error, got %v", err)
	}
	if res.Rows() != 0 {
		t.Fatalf("got %d rows, want 0", res.Rows())
	}

	contents, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("the empty export must still be written: %v", err)
	}
	if !strings.HasPrefix(string(contents), "nuc_id,") {
		t.Fatalf("expected a header-only export, got %q", contents)
	}
}

func TestRunCollectsPerFileErrors(t *testing.T) {
	opts := calFixture(t)

	// A file whose name parses but whose table has no usable header.
	bad := filepath.Join(opts.InputDir, "20190412_NTX_cal_mix2_1.unknown")
	if err := os.WriteFile(bad, []byte("a  b  c\n1  2  3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(opts)
	if err != nil {
		t.Fatalf("a partial failure must not abort the run: %v", err)
	}
	if len(res.FileErrors) != 1 {
		t.Fatalf("got %d file errors, want 1: %v", len(res.FileErrors), res.FileErrors)
	}
	if res.Rows() != 4 {
		t.Fatalf("the passing files must still be imported; got %d rows", res.Rows())
	}
}

func TestRunAllFilesFailing(t *testing.T) {
	opts := calFixture(t)

	dir := filepath.Join(t.TempDir(), "cal")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "short_name.unknown"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.InputDir = dir
	opts.OutputPath = filepath.Join(dir, "cal_export.csv")

	if _, err := Run(opts); err == nil {
		t.Fatal("expected an error when every file fails")
	}
}

func TestRunSamples(t *testing.T) {
	tmp := t.TempDir()
	inputDir := filepath.Join(tmp, "input", "samples")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	table := "nuc_nb  transition  median_int  cv\n1  101  55  0.2\n"
	if err := os.WriteFile(filepath.Join(inputDir, "20190412_NTX_plasmaA.unknown"), []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}

	convPath := filepath.Join(tmp, "conv_list.csv")
	if err := os.WriteFile(convPath, []byte(convList), 0o644); err != nil {
		t.Fatal(err)
	}
	condPath := filepath.Join(tmp, "condition_list.csv")
	if err := os.WriteFile(condPath, []byte("file_tag,sample\nplasmaA,patient-1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Run(Options{
		InputDir:       inputDir,
		Mode:           filemeta.ModeSamples,
		ConversionPath: convPath,
		ConditionPath:  condPath,
		OutputPath:     filepath.Join(tmp, "output", "samples_export.csv"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Samples) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Samples))
	}
	rec := res.Samples[0]
	if rec.FileTag != "plasmaA" || rec.Sample != "patient-1" || rec.NucID != "AMP" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestListExportsSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_x_cal_m_1.unknown", "a_x_cal_m_1.unknown", "notes.txt", "c_x_cal_m_1.UNKNOWN"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListExports(dir)
	if err != nil {
		t.Fatal(err)
	}

	// The suffix match is case-sensitive; the .txt and .UNKNOWN files are
	// excluded, and the listing is sorted.
	want := []string{"a_x_cal_m_1.unknown", "b_x_cal_m_1.unknown"}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("got %v, want %v", files, want)
	}
}

func TestDeriveOutputPath(t *testing.T) {
	for _, v := range []struct{ in, want string }{
		{"input/samples", filepath.Join("output", "samples_export.csv")},
		{"input/cal/", filepath.Join("output", "cal_export.csv")},
		{"cal", filepath.Join("output", "cal_export.csv")},
	} {
		if got := DeriveOutputPath(v.in); got != v.want {
			t.Fatalf("DeriveOutputPath(%q): got %q, want %q", v.in, got, v.want)
		}
	}
}
