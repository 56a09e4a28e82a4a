package rl

// GAE computes generalized advantage estimates over one episode and the
// corresponding value targets. bootstrap is the value estimate past the
// final step, zero when the episode ended in a terminal state.
func GAE(rewards, values []float64, bootstrap, gamma, lambda float64) (adv, targets []float64) {
	n := len(rewards)
	adv = make([]float64, n)
	targets = make([]float64, n)

	acc := 0.0
	for t := n - 1; t >= 0; t-- {
		next := bootstrap
		if t < n-1 {
			next = values[t+1]
		}
		delta := rewards[t] + gamma*next - values[t]
		acc = delta + gamma*lambda*acc
		adv[t] = acc
		targets[t] = adv[t] + values[t]
	}
	return adv, targets
}
