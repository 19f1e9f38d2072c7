// Package importqc drives the per-run import: it scans a directory of
// instrument exports, annotates each file against the reference tables,
// concatenates the results, writes the consolidated CSV export, and
// optionally renders the calibration overview plots.
package importqc

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/BirteA/NTXQC-playground/annotate"
	"github.com/BirteA/NTXQC-playground/filemeta"
	"github.com/BirteA/NTXQC-playground/qcplot"
	"github.com/BirteA/NTXQC-playground/rawtable"
	"github.com/BirteA/NTXQC-playground/reftab"
)

// Suffix selects the instrument export files within the input directory. The
// match is case-sensitive and non-recursive.
const Suffix = ".unknown"

// Options configures one import run. OutputPath defaults to the path derived
// from the input directory name (see DeriveOutputPath); PlotDir defaults to
// the export's directory.
type Options struct {
	InputDir       string
	Mode           filemeta.Mode
	ConversionPath string
	ConditionPath  string
	OutputPath     string
	Plot           bool
	PlotDir        string
}

// Result is the outcome of one import run. Cal or Samples is populated
// according to the mode. FileErrors holds the per-file structural failures;
// the run continues past them and reports them aggregated.
type Result struct {
	Cal        []annotate.CalRecord
	Samples    []annotate.SampleRecord
	OutputPath string
	FileErrors []error
}

// Rows returns the number of concatenated rows regardless of mode.
func (r Result) Rows() int {
	if len(r.Cal) > 0 {
		return len(r.Cal)
	}
	return len(r.Samples)
}

// DeriveOutputPath maps an input directory to the conventional export
// location, e.g. input/samples => output/samples_export.csv.
func DeriveOutputPath(inputDir string) string {
	return filepath.Join("output", filepath.Base(filepath.Clean(inputDir))+"_export.csv")
}

// Run executes the import pipeline. It returns an error only when the run as
// a whole cannot proceed (unreadable reference tables or input directory,
// every file failing, or an unwritable export); per-file failures land in
// Result.FileErrors instead.
func Run(opts Options) (Result, error) {
	out := Result{OutputPath: opts.OutputPath}
	if out.OutputPath == "" {
		out.OutputPath = DeriveOutputPath(opts.InputDir)
	}

	convEntries, err := reftab.LoadConversion(opts.ConversionPath)
	if err != nil {
		return out, fmt.Errorf("conversion list %s: %w", opts.ConversionPath, err)
	}
	conv := reftab.ConversionByNucNB(convEntries)

	condByCurve := map[string]reftab.ConditionEntry{}
	condByTag := map[string]reftab.ConditionEntry{}
	if opts.ConditionPath != "" {
		condEntries, err := reftab.LoadCondition(opts.ConditionPath)
		if err != nil {
			return out, fmt.Errorf("condition list %s: %w", opts.ConditionPath, err)
		}
		condByCurve = reftab.ConditionByCalcurve(condEntries)
		condByTag = reftab.ConditionByFileTag(condEntries)
	}

	files, err := ListExports(opts.InputDir)
	if err != nil {
		return out, err
	}

	for _, name := range files {
		path := filepath.Join(opts.InputDir, name)

		meta, err := filemeta.Parse(name, opts.Mode)
		if err != nil {
			out.FileErrors = append(out.FileErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}

		rows, err := rawtable.LoadFile(path)
		if err != nil {
			out.FileErrors = append(out.FileErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}

		var unmatched int
		switch opts.Mode {
		case filemeta.ModeCal:
			var recs []annotate.CalRecord
			recs, unmatched = annotate.JoinCal(rows, meta, conv, condByCurve)
			out.Cal = append(out.Cal, recs...)
		case filemeta.ModeSamples:
			var recs []annotate.SampleRecord
			recs, unmatched = annotate.JoinSamples(rows, meta, conv, condByTag)
			out.Samples = append(out.Samples, recs...)
		}

		if len(rows) > 0 && unmatched == len(rows) {
			log.Printf("Warning: %s: no row matched the conversion list. Do the reference tables belong to this run?\n", name)
		}
	}

	if len(out.FileErrors) > 0 {
		log.Printf("%d of %d files failed:\n", len(out.FileErrors), len(files))
		for _, fileErr := range out.FileErrors {
			log.Println(" ", fileErr)
		}

		if len(out.FileErrors) == len(files) {
			return out, errors.Join(out.FileErrors...)
		}
	}

	if out.Rows() == 0 {
		log.Printf("Warning: 0 rows imported from %s. Writing an empty export.\n", opts.InputDir)
	}

	if err := writeExport(out, opts.Mode); err != nil {
		return out, err
	}
	log.Println("Wrote", out.Rows(), "rows to", out.OutputPath)

	if opts.Plot {
		plotDir := opts.PlotDir
		if plotDir == "" {
			plotDir = filepath.Dir(out.OutputPath)
		}

		if opts.Mode != filemeta.ModeCal {
			log.Println("Plotting is only defined for cal mode; skipping")
		} else if err := plotCalOverview(out.Cal, plotDir); err != nil {
			return out, err
		}
	}

	return out, nil
}

// ListExports returns the sorted export file names directly under dir.
// Directory listing order is filesystem-dependent, so the sort keeps the
// concatenated output reproducible.
func ListExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}
		out = append(out, entry.Name())
	}

	sort.Strings(out)

	return out, nil
}

func writeExport(res Result, mode filemeta.Mode) error {
	if dir := filepath.Dir(res.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pfx.Err(err)
		}
	}

	f, err := os.Create(res.OutputPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	switch mode {
	case filemeta.ModeSamples:
		err = gocsv.Marshal(&res.Samples, f)
	default:
		err = gocsv.Marshal(&res.Cal, f)
	}
	if err != nil {
		return pfx.Err(err)
	}

	return nil
}

// plotCalOverview renders one faceted scatter grid per nucleotide group:
// x=level, y=median_intensity, colored by date, faceted nuc x transition_id.
// True-blank rows and rows without a level are left out.
func plotCalOverview(records []annotate.CalRecord, plotDir string) error {
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	groups := make(map[string][]qcplot.Point)
	for _, rec := range records {
		if rec.Calcurve == annotate.TrueBlank || rec.Level == nil {
			continue
		}

		groups[rec.NucGroup] = append(groups[rec.NucGroup], qcplot.Point{
			X:      float64(*rec.Level),
			Y:      rec.MedianIntensity,
			Color:  rec.Date,
			FacetA: rec.Nuc,
			FacetB: rec.TransitionID,
		})
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := qcplot.GridSpec{
			Title:  name,
			XLabel: "level",
			YLabel: "median_intensity",
			Points: groups[name],
		}

		path := filepath.Join(plotDir, strings.ReplaceAll(name, " ", "_")+"_cal_overview.png")
		if err := qcplot.GridFile(spec, path); err != nil {
			return err
		}
		log.Println("Wrote", path)
	}

	return nil
}
