package contentkit

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
)

// Resolver maps URI schemes to the backends serving them. The reserved
// LocalScheme is always served by the local Storage.
type Resolver struct {
	storage Storage
	log     *slog.Logger

	mu      sync.RWMutex
	schemes map[string]*Backend
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for registration events.
func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a Resolver whose local resources are backed by storage.
func NewResolver(storage Storage, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		storage: storage,
		log:     slog.Default(),
		schemes: make(map[string]*Backend),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Storage returns the local storage engine.
func (r *Resolver) Storage() Storage {
	return r.storage
}

// Resolve returns the resource addressed by uri.
//
// LocalScheme URIs yield a fresh LocalResource on every call. Any other scheme
// is delegated to its registered backend, or fails with ErrProviderNotFound.
func (r *Resolver) Resolve(uri *url.URL) (Resource, error) {
	if uri.Scheme == LocalScheme {
		return NewLocalResource(uri, r.storage), nil
	}

	r.mu.RLock()
	backend, ok := r.schemes[uri.Scheme]
	r.mu.RUnlock()

	if !ok {
		return nil, NewURIError("resolve", CanonicalString(uri), ErrProviderNotFound)
	}
	return backend.Get(uri), nil
}

// RegisterBackend creates a backend serving scheme through handle on ch.
// The returned func disposes the backend and removes its registration; it is
// safe to call more than once.
func (r *Resolver) RegisterBackend(handle Handle, scheme string, ch Channel) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.schemes[scheme]; ok {
		r.log.Debug("Scheme already registered",
			slog.String("scheme", scheme),
			slog.Int("handle", int(handle)),
			slog.Int("existing_handle", int(existing.Handle())))
		return nil, fmt.Errorf("%w: %s", ErrSchemeConflict, scheme)
	}

	backend := newBackend(scheme, handle, ch)
	r.schemes[scheme] = backend

	r.log.Info("Registered backend",
		slog.String("scheme", scheme),
		slog.Int("handle", int(handle)))

	var once sync.Once
	return func() {
		once.Do(func() { r.unregister(backend) })
	}, nil
}

// Backend returns the backend registered for scheme.
func (r *Resolver) Backend(scheme string) (*Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.schemes[scheme]
	return backend, ok
}

// Schemes returns the registered schemes in sorted order.
func (r *Resolver) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.schemes))
	for scheme := range r.schemes {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Close disposes every registered backend. Failures while disposing one
// backend do not stop the others; Close always returns nil.
func (r *Resolver) Close() error {
	r.mu.Lock()
	backends := make([]*Backend, 0, len(r.schemes))
	for _, backend := range r.schemes {
		backends = append(backends, backend)
	}
	r.schemes = make(map[string]*Backend)
	r.mu.Unlock()

	for _, backend := range backends {
		r.dispose(backend)
	}
	return nil
}

// unregister disposes backend and drops its mapping if it is still current.
func (r *Resolver) unregister(backend *Backend) {
	r.mu.Lock()
	if current, ok := r.schemes[backend.Scheme()]; ok && current == backend {
		delete(r.schemes, backend.Scheme())
	}
	r.mu.Unlock()

	r.dispose(backend)

	r.log.Info("Unregistered backend",
		slog.String("scheme", backend.Scheme()),
		slog.Int("handle", int(backend.Handle())))
}

// dispose runs backend.Dispose, swallowing any panic.
func (r *Resolver) dispose(backend *Backend) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("Backend disposal failed",
				slog.String("scheme", backend.Scheme()),
				slog.Any("err", rec))
		}
	}()
	backend.Dispose()
}
