// Package caleval derives quality-control tags from a consolidated
// calibration export: per-group true-blank statistics, a noise tag per row,
// and optionally saturation ratios against the top concentration level.
package caleval

import (
	"log"
	"sort"

	"github.com/gonum/stat"
	"github.com/montanaflynn/stats"

	"github.com/BirteA/NTXQC-playground/annotate"
)

// Noise and saturation tag values written to the evaluated export.
const (
	TagBelowTB   = "below_tb"
	TagAboveTB   = "above_tb"
	TagSaturated = "saturated"
)

// SaturationRatioCutoff marks a dilution series as saturated: when the mean
// intensity at level 5 reaches this fraction of the level-10 reference, the
// detector response has flattened instead of tracking the dilution.
const SaturationRatioCutoff = 0.9

// Options configures one evaluation. EvalLevel is accepted for compatibility
// with the run sheets but the current logic always references level 10.
type Options struct {
	EvalTrueBlank  bool
	TrueBlank      string
	ExclBelowTB    bool
	EvalSaturation bool
	EvalLevel      string
	ExclSaturated  bool
	InclPlot       bool
}

// DefaultOptions mirrors the acquisition team's standard run sheet.
func DefaultOptions() Options {
	return Options{
		EvalTrueBlank: true,
		TrueBlank:     annotate.TrueBlank,
		ExclBelowTB:   true,
		EvalLevel:     "top2",
		InclPlot:      true,
	}
}

// EvaluatedRecord is one calibration row with its derived QC fields.
// RefL10Int and Ratio5 are nil unless saturation was evaluated and the row's
// series has a level-10 reference.
type EvaluatedRecord struct {
	annotate.CalRecord
	MeanTBVal     float64  `csv:"mean_tb_val"`
	TagNoise      string   `csv:"tag_noise"`
	RefL10Int     *float64 `csv:"ref_l10_int,omitempty"`
	Ratio5        *float64 `csv:"ratio_5,omitempty"`
	TagSaturation string   `csv:"tag_saturation"`
}

// Evaluate runs the blank and saturation stages over a calibration export.
// It never mutates its input.
func Evaluate(records []annotate.CalRecord, opts Options) []EvaluatedRecord {
	working := evaluateBlanks(records, opts)

	if opts.EvalSaturation {
		evaluateSaturation(working)
	}

	return working
}

// evaluateBlanks computes the mean true-blank intensity per
// (nuc_id, nuc_group, transition_id) group, drops the blank rows, and tags
// every remaining row against its group mean. Rows whose group has no blank
// measurements are dropped: the group mean is attached by an inner join, and
// without it the noise tag is undefined.
func evaluateBlanks(records []annotate.CalRecord, opts Options) []EvaluatedRecord {
	if !opts.EvalTrueBlank {
		out := make([]EvaluatedRecord, 0, len(records))
		for _, rec := range records {
			out = append(out, EvaluatedRecord{CalRecord: rec})
		}
		return out
	}

	blanks := make(map[annotate.GroupKey][]float64)
	for _, rec := range records {
		if rec.Calcurve == opts.TrueBlank {
			key := rec.Key()
			blanks[key] = append(blanks[key], rec.MedianIntensity)
		}
	}

	means := make(map[annotate.GroupKey]float64, len(blanks))

	keys := make([]annotate.GroupKey, 0, len(blanks))
	for key := range blanks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		mean, sd := stat.MeanStdDev(blanks[key], nil)
		means[key] = mean
		log.Printf("True blank %s: n=%d mean=%.4g sd=%.4g\n", key, len(blanks[key]), mean, sd)
	}

	out := make([]EvaluatedRecord, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if rec.Calcurve == opts.TrueBlank {
			continue
		}

		mean, exists := means[rec.Key()]
		if !exists {
			dropped++
			continue
		}

		tag := TagAboveTB
		if rec.MedianIntensity <= mean {
			tag = TagBelowTB
		}

		out = append(out, EvaluatedRecord{CalRecord: rec, MeanTBVal: mean, TagNoise: tag})
	}

	if dropped > 0 {
		log.Printf("Warning: dropped %d rows whose group has no true-blank measurement\n", dropped)
	}
	if len(out) == 0 {
		log.Println("Warning: no rows left after blank evaluation")
	}

	return out
}

// levelKey groups intensities per series and concentration level for the
// saturation stage.
type levelKey struct {
	seriesKey
	Level int
}

// seriesKey identifies one dilution series: a nucleotide's transition on one
// acquisition date.
type seriesKey struct {
	NucID        string
	Nuc          string
	TransitionID string
	Date         string
}

// evaluateSaturation attaches the level-10 reference intensity and the
// per-level mean ratio to every row at level >= 5, and tags series whose
// level-5 response has flattened. Records are annotated in place.
func evaluateSaturation(working []EvaluatedRecord) {
	groups := make(map[levelKey][]float64)
	for _, rec := range working {
		if rec.Level == nil || *rec.Level < 5 {
			continue
		}

		key := levelKey{
			seriesKey: seriesKey{NucID: rec.NucID, Nuc: rec.Nuc, TransitionID: rec.TransitionID, Date: rec.Date},
			Level:     *rec.Level,
		}
		groups[key] = append(groups[key], rec.MedianIntensity)
	}

	means := make(map[levelKey]float64, len(groups))
	refs := make(map[seriesKey]float64)
	for key, vals := range groups {
		mean, _ := stats.Mean(stats.Float64Data(vals))
		sd, _ := stats.StandardDeviationSample(stats.Float64Data(vals))
		log.Printf("Saturation group %s/%s/%s %s level %d: n=%d mean=%.4g sd=%.4g\n",
			key.NucID, key.Nuc, key.TransitionID, key.Date, key.Level, len(vals), mean, sd)

		means[key] = mean
		if key.Level == 10 {
			refs[key.seriesKey] = mean
		}
	}

	saturated := make(map[seriesKey]bool)
	for key, mean := range means {
		if key.Level != 5 {
			continue
		}
		if ref, exists := refs[key.seriesKey]; exists && ref > 0 && mean/ref >= SaturationRatioCutoff {
			saturated[key.seriesKey] = true
		}
	}

	for i, rec := range working {
		if rec.Level == nil || *rec.Level < 5 {
			continue
		}

		series := seriesKey{NucID: rec.NucID, Nuc: rec.Nuc, TransitionID: rec.TransitionID, Date: rec.Date}
		ref, exists := refs[series]
		if !exists || ref <= 0 {
			continue
		}

		ratio := means[levelKey{seriesKey: series, Level: *rec.Level}] / ref

		working[i].RefL10Int = &ref
		working[i].Ratio5 = &ratio
		if saturated[series] {
			working[i].TagSaturation = TagSaturated
		}
	}
}
