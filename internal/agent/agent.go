package agent

import (
	"context"
	"encoding/json"
)

// Result is a JSON-serializable analysis outcome. Validate is called
// at the worker boundary before the result is persisted; a failing
// validation is stored as a FAILURE, never as a malformed SUCCESS.
type Result interface {
	Validate() error
}

// Agent turns a validated job payload into a Result. Implementations
// must be free of persistence side effects; the worker owns all
// result-store writes.
type Agent interface {
	Name() string
	Analyze(ctx context.Context, payload json.RawMessage) (Result, error)
}

// Registry maps agent names to implementations for worker dispatch.
type Registry struct {
	agents map[string]Agent
}

func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(name string) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}
