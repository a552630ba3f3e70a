// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"sync"
)

// Subsystem states as reported on the system status endpoint.
const (
	StateOperational = "operational"
	StateDegraded    = "degraded"
	StateDown        = "down"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	State   string `json:"state"`
	Detail  string `json:"detail,omitempty"`
}

// Operational builds a healthy status.
func Operational(name string) Status {
	return Status{Name: name, Healthy: true, State: StateOperational}
}

// Degraded builds a status for a subsystem that is up but impaired.
// Degraded subsystems still count as healthy for readiness purposes.
func Degraded(name, detail string) Status {
	return Status{Name: name, Healthy: true, State: StateDegraded, Detail: detail}
}

// Down builds a status for an unavailable subsystem.
func Down(name, detail string) Status {
	return Status{Name: name, Healthy: false, State: StateDown, Detail: detail}
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = nc.check(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}
