// nucimport imports a directory of nucleotide quantification exports,
// annotates them against the conversion and condition lists, and writes the
// consolidated CSV export (optionally with calibration overview plots).
package main

import (
	"flag"
	"log"
	"os"

	_ "github.com/BirteA/NTXQC-playground/compileinfoprint"
	"github.com/BirteA/NTXQC-playground/filemeta"
	"github.com/BirteA/NTXQC-playground/importqc"
)

func main() {
	var inputDir, mode, convPath, condPath, outPath, plotDir string
	var plot bool

	flag.StringVar(&inputDir, "dir", "", "Directory containing the .unknown instrument exports (non-recursive).")
	flag.StringVar(&mode, "mode", "cal", "Import mode: cal or samples.")
	flag.StringVar(&convPath, "conv", "", "Path to the nucleotide conversion list (nuc_nb, nuc_id, nuc, nuc_group).")
	flag.StringVar(&condPath, "cond", "", "Path to the condition list (calcurve/level or file_tag/sample). Optional.")
	flag.StringVar(&outPath, "out", "", "Output CSV path. Defaults to output/<dirname>_export.csv.")
	flag.BoolVar(&plot, "plot", false, "Render the calibration overview plots?")
	flag.StringVar(&plotDir, "plotdir", "", "Directory for the plots. Defaults to the export's directory.")
	flag.Parse()

	if inputDir == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if convPath == "" {
		log.Fatalln("Please provide -conv")
	}

	parsedMode, err := filemeta.ParseMode(mode)
	if err != nil {
		log.Fatalln(err)
	}

	log.Println("Importing", mode, "exports from", inputDir)

	res, err := importqc.Run(importqc.Options{
		InputDir:       inputDir,
		Mode:           parsedMode,
		ConversionPath: convPath,
		ConditionPath:  condPath,
		OutputPath:     outPath,
		Plot:           plot,
		PlotDir:        plotDir,
	})
	if err != nil {
		log.Fatalln(err)
	}

	log.Println("Imported", res.Rows(), "rows into", res.OutputPath)
	if len(res.FileErrors) > 0 {
		log.Println(len(res.FileErrors), "files were skipped; see the failure report above")
		os.Exit(1)
	}
}
