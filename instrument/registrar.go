package instrument

import (
	"sync"

	"github.com/rs/zerolog"
)

// Interceptable is a restorable interception point. Install swaps the
// wrapper in; Remove restores the saved original. Implementations store
// the original themselves so that Remove recovers it exactly, never a
// still-wrapped layer.
type Interceptable interface {
	Install() error
	Remove() error
}

// Registry tracks active interception handles by name and enforces the
// at-most-one-layer invariant. Misuse (double install, remove without
// install) is logged and ignored; instrumentation is strictly fail-open
// and must never take the host application down.
type Registry struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	handles map[string]Interceptable
}

// NewRegistry creates an empty registry logging through the given logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		handles: make(map[string]Interceptable),
	}
}

// Install activates the handle under the given name.
// If a handle with the same name is already active, the call is a no-op
// and a warning is logged. If the handle's Install fails, the failure is
// logged and the target stays uninstrumented.
func (r *Registry) Install(name string, h Interceptable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, active := r.handles[name]; active {
		r.logger.Warn().Str("integration", name).
			Msg("already instrumented, ignoring duplicate install")
		return
	}

	if err := h.Install(); err != nil {
		r.logger.Warn().Str("integration", name).Err(err).
			Msg("instrumentation target not found, skipping")
		return
	}

	r.handles[name] = h
}

// Remove deactivates the handle under the given name, restoring the
// original callable. Removing a name that was never installed is a no-op
// with a warning.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, active := r.handles[name]
	if !active {
		r.logger.Warn().Str("integration", name).
			Msg("not instrumented, ignoring uninstrument")
		return
	}

	if err := h.Remove(); err != nil {
		r.logger.Warn().Str("integration", name).Err(err).
			Msg("failed to restore original")
	}

	delete(r.handles, name)
}

// Active reports whether a handle is currently installed under the name.
func (r *Registry) Active(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, active := r.handles[name]
	return active
}
