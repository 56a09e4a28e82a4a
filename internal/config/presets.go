package config

import (
	"fmt"
	"sort"
)

// presets reproduce the benchmark's reference experiments. Access goes
// through [Preset] so callers always get their own copy.
var presets = map[string]*Run{
	"di-policy": {
		Task: "di", Method: "policy", Integrator: "euler",
		Epochs: 400, Batch: 50, LR: 4e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, EvalEpisodes: 10,
	},
	"di-td": {
		Task: "di", Method: "td", Integrator: "euler",
		Epochs: 400, Batch: 50, LR: 1e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, EvalEpisodes: 10,
	},
	"di-fvi": {
		Task: "di", Method: "fvi", Integrator: "euler",
		Epochs: 400, Batch: 50, LR: 1e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, ValueTime: true, EvalEpisodes: 10,
	},
	"di-lqr": {
		Task: "di", Method: "lqr", Integrator: "euler", EvalEpisodes: 10,
	},
	"di-ppo": {
		Task: "di", Method: "ppo", Integrator: "euler",
		Hidden: []int{64, 64},
		PPO:    PPO{TotalSteps: 500000, NumEnvs: 64},
		EvalEpisodes: 10,
	},
	"cartpole-policy": {
		Task: "cartpole", Method: "policy", Integrator: "euler",
		Epochs: 100, Batch: 1000, LR: 1e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, EvalEpisodes: 10,
	},
	"cartpole-ppo": {
		Task: "cartpole", Method: "ppo", Integrator: "euler",
		Hidden: []int{64, 64},
		PPO:    PPO{TotalSteps: 500000, NumEnvs: 64},
		EvalEpisodes: 10,
	},
	"pendulum-policy": {
		Task: "pendulum", Method: "policy", Integrator: "euler",
		Epochs: 300, Batch: 100, LR: 1e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, EvalEpisodes: 10,
	},
	"pendulum-trajopt": {
		Task: "pendulum", Method: "trajopt", Integrator: "euler",
		Iterations: 50, LR: 0.2, InitStd: 2.0, EvalEpisodes: 10,
	},
	"arm-policy": {
		Task: "arm", Method: "policy", Integrator: "euler",
		Epochs: 1000, Batch: 200, LR: 4e-3, Sigma: 0.1,
		Hidden: []int{64, 64}, EvalEpisodes: 10,
	},
}

// Preset returns a copy of a named run configuration.
func Preset(name string) (*Run, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return p.clone(), nil
}

// PresetNames lists the available presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
