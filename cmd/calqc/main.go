// calqc evaluates a consolidated calibration export: it computes true-blank
// statistics per nucleotide/transition group, tags each row against the
// blank level, optionally computes saturation ratios, writes the evaluated
// table, and renders the QC plots.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BirteA/NTXQC-playground/caleval"
	_ "github.com/BirteA/NTXQC-playground/compileinfoprint"
)

func main() {
	var calPath, outPath, plotDir string

	opts := caleval.DefaultOptions()

	flag.StringVar(&calPath, "cal", "", "Path to the cal-mode export CSV written by nucimport.")
	flag.StringVar(&outPath, "out", "", "Output CSV path for the evaluated table. Defaults to <cal>_evaluated.csv.")
	flag.StringVar(&plotDir, "plotdir", "", "Directory for the QC plots. Defaults to the output's directory.")
	flag.BoolVar(&opts.EvalTrueBlank, "eval_trueblank", opts.EvalTrueBlank, "Evaluate intensities against the true-blank groups?")
	flag.StringVar(&opts.TrueBlank, "true_blank", opts.TrueBlank, "Calibration-curve name of the true blank.")
	flag.BoolVar(&opts.ExclBelowTB, "excl_below_tb", opts.ExclBelowTB, "Exclude below-blank rows from the plots?")
	flag.BoolVar(&opts.EvalSaturation, "eval_saturation", opts.EvalSaturation, "Evaluate detector saturation against the level-10 reference?")
	flag.StringVar(&opts.EvalLevel, "eval_level", opts.EvalLevel, "Reference-level selection. Reserved; the current logic always uses level 10.")
	flag.BoolVar(&opts.ExclSaturated, "excl_saturated", opts.ExclSaturated, "Exclude saturated rows from the plots?")
	flag.BoolVar(&opts.InclPlot, "plot", opts.InclPlot, "Render the QC plots?")
	flag.Parse()

	if calPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(calPath, ".csv") + "_evaluated.csv"
	}
	if plotDir == "" {
		plotDir = filepath.Dir(outPath)
	}

	records, err := caleval.LoadExport(calPath)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Loaded", len(records), "rows from", calPath)

	evaluated := caleval.Evaluate(records, opts)
	log.Println("Evaluated", len(evaluated), "rows")

	if err := caleval.WriteExport(evaluated, outPath); err != nil {
		log.Fatalln(err)
	}
	log.Println("Wrote", outPath)

	if opts.InclPlot {
		if err := caleval.Plot(evaluated, opts, plotDir); err != nil {
			log.Fatalln(err)
		}
	}
}
