// Package rl implements a PPO baseline for the benchmark tasks.
//
// The implementation is a standard clipped-surrogate PPO with a
// diagonal Gaussian policy and generalized advantage estimation:
//
//   - [RunningStat]: online observation normalization
//   - [GaussianPolicy]: mean network plus learned log-std vector
//   - [GAE]: advantage and value-target computation
//   - [PPO]: the training loop over parallel environment rollouts
//
// Episodes follow the task horizon; rewards are negated step costs so
// that learning curves stay comparable with the gradient-based methods.
package rl
