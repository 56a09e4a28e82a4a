package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// ExportData is the JSON export shape for one run.
type ExportData struct {
	Run      *Run                 `json:"run"`
	Curves   map[string][]float64 `json:"curves,omitempty"`
	Times    []float64            `json:"times,omitempty"`
	States   [][]float64          `json:"states,omitempty"`
	Controls [][]float64          `json:"controls,omitempty"`
}

// ExportJSON writes a run with its curves and trajectory as indented
// JSON. Curves and result may be nil.
func ExportJSON(w io.Writer, run *Run, curves map[string][]float64, result *dynamics.Result) error {
	data := ExportData{Run: run, Curves: curves}
	if result != nil {
		data.Times = result.Times
		data.States = make([][]float64, len(result.States))
		for i, s := range result.States {
			data.States[i] = s
		}
		data.Controls = make([][]float64, len(result.Controls))
		for i, c := range result.Controls {
			data.Controls[i] = c
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes a trajectory as time,x0..,u0.. rows, one per state.
// Control columns for the final state are padded with zeros.
func ExportCSV(w io.Writer, result *dynamics.Result) error {
	if result == nil || len(result.States) == 0 {
		return fmt.Errorf("store: nothing to export")
	}
	cw := csv.NewWriter(w)

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := make([]string, 0, len(header))
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}
		row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		for _, v := range result.States[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if i < len(result.Controls) {
			for _, v := range result.Controls[i] {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
		} else {
			for j := 0; j < numControls; j++ {
				row = append(row, "0")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCurveCSV writes a learning curve as step,value rows.
func ExportCurveCSV(w io.Writer, curve []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "value"}); err != nil {
		return err
	}
	for i, v := range curve {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
