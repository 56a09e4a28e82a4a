package rl

import (
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// Snapshot is the persistable part of a trained policy: the mean
// network plus the observation normalizer it was trained with. Norm is
// nil when normalization was off.
type Snapshot struct {
	Mean *nn.MLP      `json:"mean"`
	Norm *RunningStat `json:"norm,omitempty"`
}

// Snapshot captures the current policy for storage.
func (p *PPO) Snapshot() *Snapshot {
	s := &Snapshot{Mean: p.policy.Mean}
	if p.cfg.Normalize {
		s.Norm = p.stats
	}
	return s
}

// Controller replays the snapshot as a deterministic feedback
// controller on tk, applying the task's control bounds.
func (s *Snapshot) Controller(tk *task.Task) dynamics.Controller {
	return &snapshotController{snap: s, tk: tk}
}

type snapshotController struct {
	snap *Snapshot
	tk   *task.Task
}

func (c *snapshotController) Compute(x dynamics.State, t float64) dynamics.Control {
	obs := c.tk.Encoder.Encode(x)
	if c.snap.Norm != nil {
		obs = c.snap.Norm.Normalize(obs)
	}
	return c.tk.Clamp(dynamics.Control(c.snap.Mean.Forward(obs)))
}

func (c *snapshotController) Reset() {}
