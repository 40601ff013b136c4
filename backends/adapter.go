package backends

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrFamilyNotRegistered is returned when no adapter serves a backend family
	ErrFamilyNotRegistered = errors.New("backend family not registered")

	// ErrFamilyAlreadyRegistered is returned when registering a duplicate family
	ErrFamilyAlreadyRegistered = errors.New("backend family already registered")
)

// Adapter is the contract implemented once per backend family. The router
// depends only on this interface, never on a concrete backend type.
//
// An adapter may retry a transient network error once, but must not retry in
// a way that hides persistent failure from the router's fallback loop.
type Adapter interface {
	// Family returns the backend family this adapter serves (e.g. "anthropic")
	Family() string

	// Complete performs a completion against the given model. Any error
	// triggers the router's next-candidate fallback; the router does not
	// distinguish error kinds.
	Complete(ctx context.Context, modelID string, req *CompletionRequest) (*CompletionResponse, error)
}

// Pricer resolves the metered cost of a completion from unit prices. The
// catalog implements this; adapters use it so pricing lives in one place.
type Pricer interface {
	CostFor(modelID string, inputTokens, outputTokens int) (float64, bool)
}

// Closer is optionally implemented by adapters that hold teardown state.
type Closer interface {
	Close() error
}

// AdapterError carries backend failure detail for logging. The router treats
// every adapter error uniformly regardless of code or status.
type AdapterError struct {
	// Family that generated the error
	Family string

	// Code is a short machine-readable cause (e.g. "http_error")
	Code string

	// Message is the human-readable cause
	Message string

	// StatusCode is the HTTP status, when applicable
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return e.Family + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Family + ": " + e.Message
}

// Unwrap implements error unwrapping
func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// NewAdapterError creates a new adapter error
func NewAdapterError(family, code, message string, statusCode int, cause error) *AdapterError {
	return &AdapterError{
		Family:     family,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// Registry maps backend families to adapter instances.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register registers an adapter under its family name
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	family := adapter.Family()
	if family == "" {
		return errors.New("adapter family cannot be empty")
	}
	if _, exists := r.adapters[family]; exists {
		return ErrFamilyAlreadyRegistered
	}

	r.adapters[family] = adapter
	return nil
}

// Get retrieves the adapter for a backend family
func (r *Registry) Get(family string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[family]
	if !exists {
		return nil, ErrFamilyNotRegistered
	}
	return adapter, nil
}

// Families returns all registered family names
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered adapters
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.adapters)
}

// CloseAll tears down every adapter that implements Closer. The first error
// is returned after all adapters have been attempted.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, adapter := range r.adapters {
		if closer, ok := adapter.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
