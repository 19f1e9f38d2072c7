// Package annotate merges raw instrument rows with the reference tables and
// projects them onto the export schemas. Join keys are explicit per call
// site; the original tooling merged on whichever column names two tables
// happened to share.
package annotate

import (
	"fmt"

	"github.com/BirteA/NTXQC-playground/filemeta"
	"github.com/BirteA/NTXQC-playground/rawtable"
	"github.com/BirteA/NTXQC-playground/reftab"
)

// CalRecord is one annotated calibration row, in export column order.
// Level is nil when the calibration curve has no condition-list entry.
type CalRecord struct {
	NucID           string  `csv:"nuc_id"`
	Nuc             string  `csv:"nuc"`
	NucGroup        string  `csv:"nuc_group"`
	TransitionID    string  `csv:"transition_id"`
	Calcurve        string  `csv:"calcurve"`
	Level           *int    `csv:"level,omitempty"`
	ReplCalcurve    int     `csv:"repl_calcurve"`
	Date            string  `csv:"date"`
	MedianIntensity float64 `csv:"median_intensity"`
	CV              float64 `csv:"cv"`
}

// SampleRecord is one annotated sample row, in export column order.
type SampleRecord struct {
	Date            string  `csv:"date"`
	FileTag         string  `csv:"file_tag"`
	Sample          string  `csv:"sample"`
	NucID           string  `csv:"nuc_id"`
	Nuc             string  `csv:"nuc"`
	TransitionID    string  `csv:"transition_id"`
	MedianIntensity float64 `csv:"median_intensity"`
	CV              float64 `csv:"cv"`
}

// TransitionID derives the composite transition identifier from the numeric
// transition field.
func TransitionID(transition string) string {
	return "t" + transition
}

// JoinCal inner-joins raw rows against the conversion list on nuc_nb (rows
// without a conversion entry are dropped, and counted in unmatched), then
// left-joins the file's calibration curve against the condition list for its
// level.
func JoinCal(rows []rawtable.Row, meta filemeta.Metadata, conv map[string]reftab.ConversionEntry, cond map[string]reftab.ConditionEntry) (out []CalRecord, unmatched int) {
	var level *int
	if c, exists := cond[meta.Calcurve]; exists {
		lvl := c.Level
		level = &lvl
	}

	out = make([]CalRecord, 0, len(rows))
	for _, row := range rows {
		c, exists := conv[row.NucNB]
		if !exists {
			unmatched++
			continue
		}

		out = append(out, CalRecord{
			NucID:           c.NucID,
			Nuc:             c.Nuc,
			NucGroup:        c.NucGroup,
			TransitionID:    TransitionID(row.Transition),
			Calcurve:        meta.Calcurve,
			Level:           level,
			ReplCalcurve:    meta.ReplCalcurve,
			Date:            meta.Date,
			MedianIntensity: row.MedianIntensity,
			CV:              row.CV,
		})
	}

	return out, unmatched
}

// JoinSamples left-joins raw rows against the conversion list on nuc_nb
// (rows without a conversion entry keep empty annotation fields, and are
// counted in unmatched), then left-joins the file tag against the condition
// list. The condition list's sample annotation wins over the conversion
// list's sample grouping when both are present.
func JoinSamples(rows []rawtable.Row, meta filemeta.Metadata, conv map[string]reftab.ConversionEntry, cond map[string]reftab.ConditionEntry) (out []SampleRecord, unmatched int) {
	sample := ""
	if c, exists := cond[meta.FileTag]; exists {
		sample = c.Sample
	}

	out = make([]SampleRecord, 0, len(rows))
	for _, row := range rows {
		rec := SampleRecord{
			Date:            meta.Date,
			FileTag:         meta.FileTag,
			Sample:          sample,
			TransitionID:    TransitionID(row.Transition),
			MedianIntensity: row.MedianIntensity,
			CV:              row.CV,
		}

		if c, exists := conv[row.NucNB]; exists {
			rec.NucID = c.NucID
			rec.Nuc = c.Nuc
			if rec.Sample == "" {
				rec.Sample = c.Sample
			}
		} else {
			unmatched++
		}

		out = append(out, rec)
	}

	return out, unmatched
}

// GroupKey identifies one nucleotide/transition combination within a
// nucleotide group. It is the grouping key for blank statistics.
type GroupKey struct {
	NucID        string
	NucGroup     string
	TransitionID string
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.NucID, k.NucGroup, k.TransitionID)
}

// Key returns the record's blank-statistics grouping key.
func (r CalRecord) Key() GroupKey {
	return GroupKey{NucID: r.NucID, NucGroup: r.NucGroup, TransitionID: r.TransitionID}
}
