// Package experiment turns run configurations into trained, evaluated
// and recorded controllers.
//
// An Experiment resolves a config.Run against the task, integrator and
// method registries, trains (or synthesizes) the controller, evaluates
// it over fresh initial states and persists the outcome when a store is
// attached:
//
//	exp := experiment.New(config.Default(), st, log)
//	sum, err := exp.Run(ctx)
//
// A Benchmark expands a suite into a method x task x seed grid and
// executes it through a compute backend, aggregating the final costs
// per task-method cell.
package experiment
