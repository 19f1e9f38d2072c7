// Package qcplot renders diagnostic scatter-plot grids. Each grid is faceted
// on two fields (nucleotide and transition), one scatter chart per facet
// cell, with one colored series per date and an optional horizontal
// reference line, tiled into a single PNG.
package qcplot

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
)

const (
	cellWidth  = 360
	cellHeight = 280
)

// Point is one plotted observation. Color groups points into series within a
// cell; FacetA and FacetB select the cell.
type Point struct {
	X      float64
	Y      float64
	Color  string
	FacetA string
	FacetB string
}

// FacetPair addresses one grid cell.
type FacetPair struct {
	A string
	B string
}

// GridSpec describes one faceted scatter grid. RefLines carries an optional
// horizontal reference value per cell.
type GridSpec struct {
	Title    string
	XLabel   string
	YLabel   string
	Points   []Point
	RefLines map[FacetPair]float64
}

// GridFile renders the grid to a PNG file.
func GridFile(spec GridSpec, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	return Grid(spec, f)
}

// Grid renders the grid as a PNG to w. Facet rows follow the sorted FacetA
// values and facet columns the sorted FacetB values, so repeated runs over
// the same data produce the same image.
func Grid(spec GridSpec, w io.Writer) error {
	facetA, facetB := FacetLevels(spec.Points)

	out := image.NewRGBA(image.Rect(0, 0, cellWidth*len(facetB), cellHeight*len(facetA)))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for row, a := range facetA {
		for col, b := range facetB {
			cell := cellPoints(spec.Points, a, b)
			if len(cell) == 0 {
				continue
			}

			var refLine *float64
			if ref, exists := spec.RefLines[FacetPair{A: a, B: b}]; exists {
				refLine = &ref
			}

			buf := bytes.NewBuffer(nil)
			if err := renderCell(spec, a, b, cell, refLine, buf); err != nil {
				return err
			}

			img, err := png.Decode(buf)
			if err != nil {
				return pfx.Err(err)
			}

			origin := image.Pt(col*cellWidth, row*cellHeight)
			draw.Draw(out, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cellWidth, cellHeight))}, img, image.Point{}, draw.Src)
		}
	}

	return pfx.Err(png.Encode(w, out))
}

// FacetLevels returns the sorted distinct FacetA and FacetB values of the
// points. The grid is len(a) rows by len(b) columns.
func FacetLevels(points []Point) (a, b []string) {
	seenA := make(map[string]struct{})
	seenB := make(map[string]struct{})

	for _, p := range points {
		seenA[p.FacetA] = struct{}{}
		seenB[p.FacetB] = struct{}{}
	}

	for v := range seenA {
		a = append(a, v)
	}
	for v := range seenB {
		b = append(b, v)
	}

	sort.Strings(a)
	sort.Strings(b)

	return a, b
}

func cellPoints(points []Point, a, b string) []Point {
	out := []Point{}
	for _, p := range points {
		if p.FacetA == a && p.FacetB == b {
			out = append(out, p)
		}
	}
	return out
}

func renderCell(spec GridSpec, a, b string, cell []Point, refLine *float64, w io.Writer) error {
	// One series per color value, in sorted order so series colors are
	// stable across runs.
	byColor := make(map[string][]Point)
	for _, p := range cell {
		byColor[p.Color] = append(byColor[p.Color], p)
	}

	colors := make([]string, 0, len(byColor))
	for v := range byColor {
		colors = append(colors, v)
	}
	sort.Strings(colors)

	minX, maxX := cell[0].X, cell[0].X
	for _, p := range cell {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
	}

	series := make([]chart.Series, 0, len(colors)+1)
	for i, c := range colors {
		xs, ys := []float64{}, []float64{}
		for _, p := range byColor[c] {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}

		// go-chart refuses series with fewer than 2 values.
		if len(xs) == 1 {
			xs = append(xs, xs[0])
			ys = append(ys, ys[0])
		}

		series = append(series, chart.ContinuousSeries{
			Name:    c,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    chart.GetDefaultColor(i),
			},
		})
	}

	if refLine != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    "blank mean",
			XValues: []float64{minX, maxX},
			YValues: []float64{*refLine, *refLine},
			Style: chart.Style{
				StrokeWidth:     1.5,
				StrokeColor:     chart.ColorRed,
				StrokeDashArray: []float64{4.0, 2.0},
			},
		})
	}

	graph := chart.Chart{
		Title:  a + " " + b,
		Width:  cellWidth,
		Height: cellHeight,
		XAxis: chart.XAxis{
			Name: spec.XLabel,
		},
		YAxis: chart.YAxis{
			Name: spec.YLabel,
		},
		Series: series,
	}

	if minX == maxX {
		// go-chart cannot render a zero-width domain.
		graph.XAxis.Range = &chart.ContinuousRange{Min: minX - 1, Max: maxX + 1}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return pfx.Err(graph.Render(chart.PNG, w))
}
