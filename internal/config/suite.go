package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite names a set of benchmark runs: presets and inline configs
// fanned out over shared seeds.
type Suite struct {
	Name    string   `yaml:"name"`
	Seeds   []int64  `yaml:"seeds,flow"`
	Presets []string `yaml:"presets,omitempty,flow"`
	Runs    []*Run   `yaml:"runs,omitempty"`
}

// DefaultSuite covers every preset with three seeds.
func DefaultSuite() *Suite {
	return &Suite{
		Name:    "all",
		Seeds:   []int64{0, 1, 2},
		Presets: PresetNames(),
	}
}

// LoadSuite reads a benchmark suite spec from yaml.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &suite, nil
}

// Expand resolves preset references and fans every run out over the
// suite's seeds. Without seeds, each run keeps its own.
func (s *Suite) Expand() ([]*Run, error) {
	base := make([]*Run, 0, len(s.Presets)+len(s.Runs))
	for _, name := range s.Presets {
		run, err := Preset(name)
		if err != nil {
			return nil, err
		}
		base = append(base, run)
	}
	base = append(base, s.Runs...)

	for _, run := range base {
		if err := run.Validate(); err != nil {
			return nil, err
		}
	}

	if len(s.Seeds) == 0 {
		return base, nil
	}
	out := make([]*Run, 0, len(base)*len(s.Seeds))
	for _, seed := range s.Seeds {
		for _, run := range base {
			clone := run.clone()
			clone.Seed = seed
			out = append(out, clone)
		}
	}
	return out, nil
}
