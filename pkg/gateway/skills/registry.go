package skills

import (
	"context"
	"fmt"
	"sort"
)

// Skill is a named local capability the agent leg can invoke through the
// function-call protocol. Results are plain JSON-shaped maps; a failing skill
// reports an error payload, it never faults the relay.
type Skill interface {
	Name() string
	Invoke(ctx context.Context, args map[string]any) map[string]any
}

type Registry struct {
	byName map[string]Skill
}

func NewRegistry(sks ...Skill) *Registry {
	registry := &Registry{byName: make(map[string]Skill, len(sks))}
	for _, sk := range sks {
		if sk == nil {
			continue
		}
		registry.byName[sk.Name()] = sk
	}
	return registry
}

func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[name]
	return ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named skill. Unknown names and panicking skills both come
// back as error payloads so the response envelope builder never needs a
// special case.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result map[string]any) {
	defer func() {
		if v := recover(); v != nil {
			result = map[string]any{"error": fmt.Sprintf("Function call failed with: %v", v)}
		}
	}()

	if r == nil {
		return map[string]any{"error": fmt.Sprintf("Unknown function: %s", name)}
	}
	sk, ok := r.byName[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("Unknown function: %s", name)}
	}
	out := sk.Invoke(ctx, args)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
