// Package registry maps command names to handlers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Odwa2003/Phone-Controller/internal/models"
)

var (
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrHandlerNotFound  = errors.New("handler not found")
)

// Handler performs the effect of one command.
type Handler func(ctx context.Context, cmd models.Command) (*models.Envelope, error)

// Registry is built once at startup and only read afterwards.
type Registry struct {
	handlers map[string]Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h. Registering a name twice is an error.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("register %q: name and handler are required", name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateHandler)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister is Register for static tables; it panics on collision.
func (r *Registry) MustRegister(name string, h Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrHandlerNotFound)
	}
	return h, nil
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Typed adapts a variant-specific function to a Handler.
func Typed[T models.Command](fn func(ctx context.Context, cmd T) (*models.Envelope, error)) Handler {
	return func(ctx context.Context, cmd models.Command) (*models.Envelope, error) {
		typed, ok := cmd.(T)
		if !ok {
			return nil, models.Faultf(models.FaultValidation, "Invalid %s payload", cmd.CommandType())
		}
		return fn(ctx, typed)
	}
}
