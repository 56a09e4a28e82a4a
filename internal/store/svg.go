package store

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

var svgPalette = []string{"#4cc9f0", "#f72585", "#b5e48c", "#ffd166", "#9d4edd", "#ff6d00"}

// ExportSVG writes the state trajectory as an SVG, one polyline per
// component over time on a shared vertical scale. Zero width or height
// fall back to 800x400.
func ExportSVG(w io.Writer, result *dynamics.Result, width, height int) error {
	if result == nil || len(result.States) < 2 {
		return fmt.Errorf("store: nothing to export")
	}
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range result.States {
		for _, v := range x {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= 0.1 * span
	span *= 1.2

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString(fmt.Sprintf(
		"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		width, height, width, height))
	sb.WriteString("<rect width=\"100%\" height=\"100%\" fill=\"#101010\"/>\n")

	n := len(result.States)
	dim := len(result.States[0])
	for j := 0; j < dim; j++ {
		sb.WriteString(fmt.Sprintf("<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"",
			svgPalette[j%len(svgPalette)]))
		for i, x := range result.States {
			px := float64(i) / float64(n-1) * float64(width)
			py := float64(height) - (x[j]-lo)/span*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("M%.1f,%.1f", px, py))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
