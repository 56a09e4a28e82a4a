// Package compute provides execution backends for batched work.
//
// Rollout batches, benchmark grids, and parameter sweeps fan out over a
// [Backend]:
//
//   - Serial: runs items in order on the calling goroutine
//   - Parallel: bounded worker fan-out over all CPUs
//
// Auto selects Parallel on multicore machines:
//
//	backend := compute.Auto()
//	err := backend.Map(ctx, len(inits), func(i int) error { ... })
package compute
