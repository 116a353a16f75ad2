package telemetry

import (
	"fmt"
	"sync"
)

// Listener receives a copy of the snapshot after every merge.
//
// Listeners are invoked synchronously on the message-handling path and
// should return quickly; anything slow belongs in the listener's own
// goroutine.
type Listener func(Snapshot)

// Logger interface for listener panic reporting.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
}

// Registry fans snapshot updates out to registered listeners.
//
// Each listener runs under its own panic recovery so one misbehaving
// subscriber cannot prevent the rest from seeing the update.
type Registry struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRegistry creates an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[int]Listener)}
}

// Subscribe registers fn for snapshot updates and returns an unsubscribe
// function. Unsubscribing twice is a safe no-op.
func (r *Registry) Subscribe(fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Count returns the number of registered listeners.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Notify delivers snap to every registered listener in turn.
func (r *Registry) Notify(snap Snapshot) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		r.invoke(fn, snap)
	}
}

func (r *Registry) invoke(fn Listener, snap Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logError("panic in snapshot listener",
				"panic", fmt.Sprintf("%v", rec))
		}
	}()
	fn(snap)
}

// SetLogger sets an optional logger for listener panic reporting.
func (r *Registry) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	defer r.loggerMu.Unlock()
	r.logger = logger
}

func (r *Registry) logError(msg string, args ...any) {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
