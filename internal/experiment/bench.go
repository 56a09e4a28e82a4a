package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/githubhash01/Honours-Project/internal/compute"
	"github.com/githubhash01/Honours-Project/internal/config"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/store"
)

// Cell aggregates the runs of one task-method pair across seeds.
type Cell struct {
	Task   string
	Method string

	// Mean and Std summarize the final evaluation costs of the
	// completed runs, Best is the lowest. NaN when every run
	// failed.
	Mean float64
	Std  float64
	Best float64

	Runs     int
	Failed   int
	WallTime time.Duration
}

// Header labels the row format for a tabwriter table.
func Header() string {
	return "task\tmethod\truns\tmean\tstd\tbest\twall"
}

// Row formats the cell for a tabwriter table.
func (c Cell) Row() string {
	wall := c.WallTime.Round(time.Millisecond)
	if c.Runs == 0 {
		return fmt.Sprintf("%s\t%s\t0/%d\t-\t-\t-\t%s", c.Task, c.Method, c.Failed, wall)
	}
	return fmt.Sprintf("%s\t%s\t%d/%d\t%.4g\t%.4g\t%.4g\t%s",
		c.Task, c.Method, c.Runs, c.Runs+c.Failed, c.Mean, c.Std, c.Best, wall)
}

// Benchmark executes every run of a suite across a compute backend and
// aggregates the outcomes per task-method cell. Individual run
// failures are logged and counted; only cancellation stops the grid.
type Benchmark struct {
	Suite   *config.Suite
	Store   *store.Store
	Backend compute.Backend
	Log     *zap.SugaredLogger
}

// Run executes the expanded grid. The returned summaries parallel the
// expanded runs, with nil entries for failures.
func (b *Benchmark) Run(ctx context.Context) ([]Cell, []*Summary, error) {
	runs, err := b.Suite.Expand()
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("suite %s expands to no runs", b.Suite.Name)
	}

	log := b.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	backend := b.Backend
	if backend == nil {
		backend = compute.Auto()
	}
	log.Infow("benchmark start",
		"suite", b.Suite.Name,
		"runs", len(runs),
		"backend", backend.Name())

	summaries := make([]*Summary, len(runs))
	err = backend.Map(ctx, len(runs), func(i int) error {
		run := runs[i]
		sum, err := New(run, b.Store, log).Run(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, dynamics.ErrContextCanceled) {
				return err
			}
			log.Warnw("run failed",
				"task", run.Task,
				"method", run.Method,
				"seed", run.Seed,
				"err", err)
			return nil
		}
		summaries[i] = sum
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return aggregate(runs, summaries), summaries, nil
}

type cellAcc struct {
	task   string
	method string
	costs  []float64
	best   float64
	failed int
	wall   time.Duration
}

// aggregate folds the summaries into sorted per-cell statistics. Runs
// whose every evaluation episode diverged count as failed.
func aggregate(runs []*config.Run, summaries []*Summary) []Cell {
	acc := make(map[string]*cellAcc)
	var order []string
	for i, run := range runs {
		key := run.Task + "\x00" + run.Method
		a, ok := acc[key]
		if !ok {
			a = &cellAcc{task: run.Task, method: run.Method, best: math.Inf(1)}
			acc[key] = a
			order = append(order, key)
		}
		sum := summaries[i]
		if sum == nil || math.IsNaN(sum.FinalCost) {
			a.failed++
			continue
		}
		a.costs = append(a.costs, sum.FinalCost)
		a.wall += sum.WallTime
		if sum.FinalCost < a.best {
			a.best = sum.FinalCost
		}
	}

	sort.Strings(order)
	cells := make([]Cell, 0, len(order))
	for _, key := range order {
		a := acc[key]
		c := Cell{
			Task:     a.task,
			Method:   a.method,
			Runs:     len(a.costs),
			Failed:   a.failed,
			WallTime: a.wall,
		}
		switch len(a.costs) {
		case 0:
			c.Mean, c.Std, c.Best = math.NaN(), math.NaN(), math.NaN()
		case 1:
			c.Mean, c.Best = a.costs[0], a.costs[0]
		default:
			c.Mean = stat.Mean(a.costs, nil)
			c.Std = stat.StdDev(a.costs, nil)
			c.Best = a.best
		}
		cells = append(cells, c)
	}
	return cells
}
