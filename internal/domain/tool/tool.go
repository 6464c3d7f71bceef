package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is a named, validated function exposed to the model. Execute first
// validates the raw argument map into a typed struct and then runs the
// handler; handlers never see raw maps.
type Tool interface {
	// Name returns the canonical tool name the model calls.
	Name() string
	// Label returns the human-readable translation shown to clients.
	Label() string
	// Description returns the description passed to the model.
	Description() string
	// Schema returns the JSON Schema of the parameters.
	Schema() map[string]any
	// Execute validates args and runs the handler, returning a structured
	// payload. Classified failures come back as *errors.AppError.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Definition is the tool shape passed to the model.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry holds the tool catalog.
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	List() []Definition
	Label(name string) string
	Has(name string) bool
}

// InMemoryRegistry is the process-wide tool registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tools: make(map[string]Tool)}
}

func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns definitions sorted by name so the model sees a stable catalog.
func (r *InMemoryRegistry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Label returns the tool's display label, falling back to the name.
func (r *InMemoryRegistry) Label(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.tools[name]; ok {
		return t.Label()
	}
	return name
}

func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}
