package integrators

import (
	"fmt"
	"sort"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

var factories = map[string]func() dynamics.Integrator{
	"euler":    func() dynamics.Integrator { return NewEuler() },
	"rk4":      func() dynamics.Integrator { return NewRK4() },
	"rk45":     func() dynamics.Integrator { return NewRK45() },
	"verlet":   func() dynamics.Integrator { return NewVerlet() },
	"leapfrog": func() dynamics.Integrator { return NewLeapfrog() },
}

// New constructs an integrator by name.
func New(name string) (dynamics.Integrator, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamics.ErrUnknownIntegrator, name)
	}
	return factory(), nil
}

// Names lists the available integrators, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
