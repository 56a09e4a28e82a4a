// Package config defines run configurations, presets, benchmark suites
// and process settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Run configures one training run. Zero-valued optional fields fall
// back to the trainer defaults.
type Run struct {
	Task       string `yaml:"task"`
	Method     string `yaml:"method"`
	Integrator string `yaml:"integrator"`
	Seed       int64  `yaml:"seed"`

	// Task geometry overrides. Zero keeps the task's native values.
	Dt      float64 `yaml:"dt,omitempty"`
	Horizon int     `yaml:"horizon,omitempty"`

	// Differentiable training.
	Epochs     int     `yaml:"epochs,omitempty"`
	Batch      int     `yaml:"batch,omitempty"`
	LR         float64 `yaml:"lr,omitempty"`
	Samples    int     `yaml:"samples,omitempty"`
	Sigma      float64 `yaml:"sigma,omitempty"`
	Hidden     []int   `yaml:"hidden,omitempty,flow"`
	Activation string  `yaml:"activation,omitempty"`
	ValueTime  bool    `yaml:"value_time,omitempty"`
	Eps        float64 `yaml:"eps,omitempty"`

	// Trajectory optimization. LR doubles as its step size.
	Iterations int     `yaml:"iterations,omitempty"`
	InitStd    float64 `yaml:"init_std,omitempty"`

	PPO PPO `yaml:"ppo,omitempty"`

	// PID baseline gains. All zero means the method defaults.
	Kp float64 `yaml:"kp,omitempty"`
	Ki float64 `yaml:"ki,omitempty"`
	Kd float64 `yaml:"kd,omitempty"`

	EvalEpisodes int `yaml:"eval_episodes,omitempty"`
}

// PPO holds the model-free baseline's hyperparameters.
type PPO struct {
	TotalSteps   int     `yaml:"total_steps,omitempty"`
	NumEnvs      int     `yaml:"num_envs,omitempty"`
	Gamma        float64 `yaml:"gamma,omitempty"`
	Lambda       float64 `yaml:"lambda,omitempty"`
	Clip         float64 `yaml:"clip,omitempty"`
	LR           float64 `yaml:"lr,omitempty"`
	Entropy      float64 `yaml:"entropy,omitempty"`
	ValueCoeff   float64 `yaml:"value_coeff,omitempty"`
	Minibatches  int     `yaml:"minibatches,omitempty"`
	UpdateEpochs int     `yaml:"update_epochs,omitempty"`
	RewardScale  float64 `yaml:"reward_scale,omitempty"`
	Normalize    *bool   `yaml:"normalize,omitempty"`
}

// Default returns the baseline run configuration.
func Default() *Run {
	return &Run{
		Task:         "di",
		Method:       "policy",
		Integrator:   "euler",
		Epochs:       100,
		Batch:        50,
		LR:           1e-3,
		Sigma:        0.1,
		Hidden:       []int{64, 64},
		Activation:   "relu",
		Iterations:   50,
		InitStd:      2.0,
		EvalEpisodes: 10,
	}
}

// Load reads a run config from yaml, applying defaults for unset
// fields.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	run := Default()
	if err := yaml.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return run, nil
}

// Save writes a run config as yaml.
func Save(path string, run *Run) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configs no trainer can run.
func (r *Run) Validate() error {
	if r.Task == "" {
		return fmt.Errorf("config: task is required")
	}
	if r.Method == "" {
		return fmt.Errorf("config: method is required")
	}
	if r.Dt < 0 || r.Horizon < 0 {
		return fmt.Errorf("config: dt and horizon must not be negative")
	}
	if r.LR < 0 {
		return fmt.Errorf("config: lr must not be negative, got %g", r.LR)
	}
	if r.Sigma < 0 {
		return fmt.Errorf("config: sigma must not be negative, got %g", r.Sigma)
	}
	if r.Epochs < 0 || r.Batch < 0 || r.Iterations < 0 {
		return fmt.Errorf("config: epochs, batch and iterations must not be negative")
	}
	for _, h := range r.Hidden {
		if h <= 0 {
			return fmt.Errorf("config: hidden widths must be positive, got %d", h)
		}
	}
	return nil
}

func (r *Run) clone() *Run {
	out := *r
	out.Hidden = append([]int(nil), r.Hidden...)
	if r.PPO.Normalize != nil {
		b := *r.PPO.Normalize
		out.PPO.Normalize = &b
	}
	return &out
}
