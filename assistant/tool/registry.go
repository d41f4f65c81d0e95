package tool

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

// Handler executes one capability. Handlers never return a Go error: any
// failure is encoded into the returned payload so the orchestration loop
// can feed it back to the model.
type Handler func(ctx context.Context, args map[string]any) any

// ErrorPayload is the error-shaped function result returned for unknown
// tools (and by handlers that want the model to self-correct).
type ErrorPayload struct {
	Error string `json:"error"`
}

// Registry is the static mapping from tool name to spec and handler.
// Registration happens once at startup; dispatch is read-only after that.
type Registry struct {
	mu       sync.RWMutex
	specs    []contractx.ToolSpec
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a capability. Names are unique keys.
func (r *Registry) Register(spec contractx.ToolSpec, h Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: tool name is required", contractx.ErrValidation)
	}
	if h == nil {
		return fmt.Errorf("%w: handler is required for tool=%s", contractx.ErrValidation, spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[spec.Name]; exists {
		return fmt.Errorf("%w: tool=%s already registered", contractx.ErrValidation, spec.Name)
	}
	r.handlers[spec.Name] = h
	r.specs = append(r.specs, spec)
	return nil
}

// MustRegister panics on registration failure. Wiring-time use only.
func (r *Registry) MustRegister(spec contractx.ToolSpec, h Handler) {
	if err := r.Register(spec, h); err != nil {
		panic(err)
	}
}

// Specs returns the full tool catalog for inclusion in every model call.
func (r *Registry) Specs() []contractx.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]contractx.ToolSpec, len(r.specs))
	copy(cp, r.specs)
	return cp
}

// Dispatch runs the named handler. An unknown name yields an error-shaped
// payload, not a Go error, so the caller can return it to the model as a
// function result.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) any {
	r.mu.RLock()
	h := r.handlers[name]
	r.mu.RUnlock()

	if h == nil {
		return ErrorPayload{Error: fmt.Sprintf("function %q does not exist", name)}
	}
	return h(ctx, args)
}
