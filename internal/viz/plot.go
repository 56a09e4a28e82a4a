package viz

import (
	"fmt"
	"sort"

	"github.com/guptarohit/asciigraph"

	"github.com/githubhash01/Honours-Project/internal/analysis"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Blue,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Yellow,
	asciigraph.Magenta,
	asciigraph.Cyan,
}

// Curve plots one series with a caption.
func Curve(values []float64, caption string, width, height int) string {
	if len(values) < 2 {
		return "(not enough data to plot)"
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// Compare plots labelled series together, colored and legended in
// name order.
func Compare(series map[string][]float64, caption string, width, height int) string {
	names := make([]string, 0, len(series))
	for name, values := range series {
		if len(values) >= 2 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "(not enough data to plot)"
	}
	sort.Strings(names)

	data := make([][]float64, len(names))
	for i, name := range names {
		data[i] = series[name]
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesLegends(names...),
	}
	if !colorDisabled {
		colors := make([]asciigraph.AnsiColor, len(names))
		for i := range names {
			colors[i] = seriesColors[i%len(seriesColors)]
		}
		opts = append(opts, asciigraph.SeriesColors(colors...))
	}
	return asciigraph.PlotMany(data, opts...)
}

// Components plots the chosen state components of a trajectory.
func Components(result *dynamics.Result, indices []int, width, height int) string {
	if result == nil || len(result.States) < 2 {
		return "(not enough data to plot)"
	}
	series := make(map[string][]float64, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(result.States[0]) {
			continue
		}
		values := make([]float64, len(result.States))
		for i, x := range result.States {
			values[i] = x[idx]
		}
		series[fmt.Sprintf("x%d", idx)] = values
	}
	return Compare(series, "state trajectory", width, height)
}

// Actuation plots every control channel of a trajectory.
func Actuation(result *dynamics.Result, width, height int) string {
	if result == nil || len(result.Controls) < 2 {
		return "(not enough data to plot)"
	}
	m := len(result.Controls[0])
	series := make(map[string][]float64, m)
	for j := 0; j < m; j++ {
		values := make([]float64, len(result.Controls))
		for i, u := range result.Controls {
			if j < len(u) {
				values[i] = u[j]
			}
		}
		series[fmt.Sprintf("u%d", j)] = values
	}
	return Compare(series, "control trajectory", width, height)
}

// Portrait scatters a phase portrait onto a Braille canvas, with axis
// lines where the origin is in frame.
func Portrait(p *analysis.PhasePortrait2D, cols, rows int) string {
	if p == nil || len(p.Points) == 0 {
		return "(empty portrait)"
	}
	minX, maxX, minY, maxY := p.Bounds()
	c := NewCanvas(cols, rows)
	s := Scale{
		MinX: minX, MaxX: maxX,
		MinY: minY, MaxY: maxY,
		W: c.SubWidth(), H: c.SubHeight(),
	}

	if minX < 0 && maxX > 0 {
		x0, _ := s.Point(0, minY)
		c.Line(x0, 0, x0, c.SubHeight()-1)
	}
	if minY < 0 && maxY > 0 {
		_, y0 := s.Point(minX, 0)
		c.Line(0, y0, c.SubWidth()-1, y0)
	}

	for _, pt := range p.Points {
		x, y := s.Point(pt.X, pt.Y)
		c.Set(x, y)
	}
	caption := fmt.Sprintf("x%d vs x%d", p.YIndex, p.XIndex)
	return c.String() + caption
}
