package caleval

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/BirteA/NTXQC-playground/qcplot"
)

// Plot renders one faceted scatter grid per nucleotide group from the
// evaluated table, with the group's blank mean as a horizontal reference
// line per facet. Rows excluded by the ExclBelowTB/ExclSaturated flags are
// filtered out first; the exclusion counts are logged so a heavily filtered
// plot is explainable.
func Plot(records []EvaluatedRecord, opts Options, plotDir string) error {
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	working := make([]EvaluatedRecord, 0, len(records))
	belowTB, saturated := 0, 0
	for _, rec := range records {
		if rec.Calcurve == opts.TrueBlank {
			continue
		}
		if opts.ExclBelowTB && rec.TagNoise == TagBelowTB {
			belowTB++
			continue
		}
		if opts.ExclSaturated && opts.EvalSaturation && rec.TagSaturation == TagSaturated {
			saturated++
			continue
		}
		working = append(working, rec)
	}

	if belowTB > 0 {
		log.Println("Excluded", belowTB, "below_tb rows from the plots")
	}
	if saturated > 0 {
		log.Println("Excluded", saturated, "saturated rows from the plots")
	}
	if len(working) == 0 {
		log.Println("Warning: nothing left to plot after filtering")
		return nil
	}

	groups := make(map[string][]qcplot.Point)
	refLines := make(map[string]map[qcplot.FacetPair]float64)
	for _, rec := range working {
		if rec.Level == nil {
			continue
		}

		groups[rec.NucGroup] = append(groups[rec.NucGroup], qcplot.Point{
			X:      float64(*rec.Level),
			Y:      rec.MedianIntensity,
			Color:  rec.Date,
			FacetA: rec.Nuc,
			FacetB: rec.TransitionID,
		})

		if rec.TagNoise != "" {
			if refLines[rec.NucGroup] == nil {
				refLines[rec.NucGroup] = make(map[qcplot.FacetPair]float64)
			}
			refLines[rec.NucGroup][qcplot.FacetPair{A: rec.Nuc, B: rec.TransitionID}] = rec.MeanTBVal
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := qcplot.GridSpec{
			Title:    name,
			XLabel:   "level",
			YLabel:   "median_intensity",
			Points:   groups[name],
			RefLines: refLines[name],
		}

		path := filepath.Join(plotDir, strings.ReplaceAll(name, " ", "_")+"_cal_qc.png")
		if err := qcplot.GridFile(spec, path); err != nil {
			return err
		}
		log.Println("Wrote", path)
	}

	return nil
}
