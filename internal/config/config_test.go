package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	run := Default()
	if err := run.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if run.Task != "di" || run.Method != "policy" {
		t.Errorf("unexpected defaults: task %s method %s", run.Task, run.Method)
	}
	if run.LR <= 0 {
		t.Error("lr should be positive")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	run := Default()
	run.Task = "pendulum"
	run.LR = 0.2
	run.Hidden = []int{32, 16}

	if err := Save(path, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Task != "pendulum" || got.LR != 0.2 {
		t.Errorf("got task %s lr %g", got.Task, got.LR)
	}
	if len(got.Hidden) != 2 || got.Hidden[0] != 32 || got.Hidden[1] != 16 {
		t.Errorf("got hidden %v", got.Hidden)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("task: pendulum\nmethod: trajopt\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Task != "pendulum" || got.Method != "trajopt" {
		t.Errorf("got task %s method %s", got.Task, got.Method)
	}
	if got.Batch != Default().Batch {
		t.Errorf("batch = %d, want default %d", got.Batch, Default().Batch)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Run)
	}{
		{"empty task", func(r *Run) { r.Task = "" }},
		{"empty method", func(r *Run) { r.Method = "" }},
		{"negative lr", func(r *Run) { r.LR = -1 }},
		{"negative sigma", func(r *Run) { r.Sigma = -0.1 }},
		{"negative epochs", func(r *Run) { r.Epochs = -5 }},
		{"zero hidden width", func(r *Run) { r.Hidden = []int{64, 0} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := Default()
			tc.mutate(run)
			if err := run.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPreset(t *testing.T) {
	run, err := Preset("di-policy")
	if err != nil {
		t.Fatalf("preset failed: %v", err)
	}
	if run.Task != "di" || run.Method != "policy" {
		t.Errorf("got task %s method %s", run.Task, run.Method)
	}
	if run.LR != 4e-3 || run.Epochs != 400 {
		t.Errorf("got lr %g epochs %d", run.LR, run.Epochs)
	}
	if err := run.Validate(); err != nil {
		t.Errorf("preset invalid: %v", err)
	}
}

func TestPresetCopies(t *testing.T) {
	first, err := Preset("di-policy")
	if err != nil {
		t.Fatal(err)
	}
	first.Hidden[0] = 999
	first.Epochs = 1

	second, err := Preset("di-policy")
	if err != nil {
		t.Fatal(err)
	}
	if second.Hidden[0] == 999 || second.Epochs == 1 {
		t.Error("preset mutation leaked into the map")
	}
}

func TestPresetUnknown(t *testing.T) {
	if _, err := Preset("nonexistent"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestPresetNames(t *testing.T) {
	names := PresetNames()
	if !sort.StringsAreSorted(names) {
		t.Error("names not sorted")
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"di-policy", "di-ppo", "pendulum-trajopt", "arm-policy"} {
		if !found[want] {
			t.Errorf("missing preset %s", want)
		}
	}

	// Every preset must validate.
	for _, name := range names {
		run, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if err := run.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestSuiteExpand(t *testing.T) {
	suite := &Suite{
		Seeds:   []int64{1, 2},
		Presets: []string{"di-policy"},
		Runs: []*Run{
			{Task: "arm", Method: "policy"},
		},
	}
	runs, err := suite.Expand()
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("got %d runs, want 4", len(runs))
	}
	seeds := map[int64]int{}
	for _, r := range runs {
		seeds[r.Seed]++
	}
	if seeds[1] != 2 || seeds[2] != 2 {
		t.Errorf("seed fan-out wrong: %v", seeds)
	}
}

func TestSuiteExpandUnknownPreset(t *testing.T) {
	suite := &Suite{Presets: []string{"nope"}}
	if _, err := suite.Expand(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestDefaultSuite(t *testing.T) {
	runs, err := DefaultSuite().Expand()
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(runs) != 3*len(PresetNames()) {
		t.Errorf("got %d runs, want %d", len(runs), 3*len(PresetNames()))
	}
}

func TestLoadSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	spec := "name: quick\nseeds: [7]\npresets: [di-policy, di-ppo]\n"
	if err := os.WriteFile(path, []byte(spec), 0644); err != nil {
		t.Fatal(err)
	}

	suite, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if suite.Name != "quick" {
		t.Errorf("name = %s", suite.Name)
	}
	runs, err := suite.Expand()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Seed != 7 || runs[1].Seed != 7 {
		t.Error("seed not applied")
	}
}

func TestSettings(t *testing.T) {
	t.Setenv("DIFFBENCH_DATA_DIR", "/tmp/bench-data")
	t.Setenv("DIFFBENCH_LOG_LEVEL", "debug")

	s, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env failed: %v", err)
	}
	if s.DataDir != "/tmp/bench-data" {
		t.Errorf("data dir = %s", s.DataDir)
	}
	if s.LogLevel != "debug" {
		t.Errorf("log level = %s", s.LogLevel)
	}
	if got := s.DBPath(); got != filepath.Join("/tmp/bench-data", "bench.db") {
		t.Errorf("db path = %s", got)
	}

	t.Setenv("DIFFBENCH_DB", "/tmp/other.db")
	s, err = ParseEnv()
	if err != nil {
		t.Fatal(err)
	}
	if s.DBPath() != "/tmp/other.db" {
		t.Errorf("db path = %s", s.DBPath())
	}
}
