// Package bridge dispatches wire operations from the remote side onto a
// contentkit Resolver: backend registration by handle, and content reads and
// writes addressed by URI components.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/gobeaver/contentkit"
	"github.com/gobwas/glob"
)

var (
	// ErrSchemeNotAllowed is returned when a scheme matches no allow-list pattern.
	ErrSchemeNotAllowed = errors.New("scheme not allowed")
	// ErrHandleRegistered is returned when a handle already owns a backend.
	ErrHandleRegistered = errors.New("handle already registered")
	// ErrHandleDisposed is returned when a disposed handle is registered again.
	ErrHandleDisposed = errors.New("handle disposed")
)

// HandleState is the lifecycle state of a handle.
type HandleState int

const (
	Unregistered HandleState = iota
	Registered
	Disposed
)

func (s HandleState) String() string {
	switch s {
	case Registered:
		return "registered"
	case Disposed:
		return "disposed"
	default:
		return "unregistered"
	}
}

// Resolver is the registry a Bridge dispatches to. *contentkit.Resolver
// satisfies it.
type Resolver interface {
	Resolve(uri *url.URL) (contentkit.Resource, error)
	RegisterBackend(handle contentkit.Handle, scheme string, ch contentkit.Channel) (func(), error)
}

// Bridge owns the backends registered through it, indexed by handle.
type Bridge struct {
	resolver Resolver
	channel  contentkit.Channel
	log      *slog.Logger
	allowed  []glob.Glob

	mu        sync.Mutex
	teardowns map[contentkit.Handle]func()
	disposed  map[contentkit.Handle]struct{}
}

// Option configures a Bridge.
type Option func(*Bridge) error

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) error {
		if log != nil {
			b.log = log
		}
		return nil
	}
}

// WithAllowedSchemes restricts registration to schemes matching one of the
// glob patterns. Without it every scheme is allowed.
func WithAllowedSchemes(patterns ...string) Option {
	return func(b *Bridge) error {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			g, err := glob.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid scheme pattern %q: %w", p, err)
			}
			b.allowed = append(b.allowed, g)
		}
		return nil
	}
}

// New creates a Bridge registering backends on resolver that talk to the
// remote side through ch.
func New(resolver Resolver, ch contentkit.Channel, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		resolver:  resolver,
		channel:   ch,
		log:       slog.Default(),
		teardowns: make(map[contentkit.Handle]func()),
		disposed:  make(map[contentkit.Handle]struct{}),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Register creates a backend serving scheme on behalf of handle.
func (b *Bridge) Register(ctx context.Context, handle contentkit.Handle, scheme string) error {
	if !b.schemeAllowed(scheme) {
		return fmt.Errorf("%w: %s", ErrSchemeNotAllowed, scheme)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.disposed[handle]; ok {
		return fmt.Errorf("%w: %d", ErrHandleDisposed, handle)
	}
	if _, ok := b.teardowns[handle]; ok {
		return fmt.Errorf("%w: %d", ErrHandleRegistered, handle)
	}

	teardown, err := b.resolver.RegisterBackend(handle, scheme, b.channel)
	if err != nil {
		return err
	}
	b.teardowns[handle] = teardown

	b.log.InfoContext(ctx, "Handle registered",
		slog.Int("handle", int(handle)),
		slog.String("scheme", scheme))
	return nil
}

// Unregister disposes the backend owned by handle. Unknown handles are ignored.
func (b *Bridge) Unregister(ctx context.Context, handle contentkit.Handle) {
	b.mu.Lock()
	teardown, ok := b.teardowns[handle]
	if ok {
		delete(b.teardowns, handle)
		b.disposed[handle] = struct{}{}
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	runTeardown(b.log, handle, teardown)

	b.log.InfoContext(ctx, "Handle unregistered", slog.Int("handle", int(handle)))
}

// Read returns the content addressed by comps.
func (b *Bridge) Read(ctx context.Context, comps contentkit.Components, opts *contentkit.ReadOptions) (string, error) {
	uri, err := contentkit.Revive(comps)
	if err != nil {
		return "", err
	}

	res, err := b.resolver.Resolve(uri)
	if err != nil {
		return "", err
	}
	return res.ReadContents(ctx, opts)
}

// Write stores content at the URI addressed by comps. Resources without the
// CanSave capability fail with contentkit.ErrUnsupportedOperation.
func (b *Bridge) Write(ctx context.Context, comps contentkit.Components, content string, opts *contentkit.WriteOptions) error {
	uri, err := contentkit.Revive(comps)
	if err != nil {
		return err
	}

	res, err := b.resolver.Resolve(uri)
	if err != nil {
		return err
	}

	saver, ok := res.(contentkit.CanSave)
	if !ok {
		return contentkit.NewURIError("write", contentkit.CanonicalString(uri), contentkit.ErrUnsupportedOperation)
	}
	return saver.SaveContents(ctx, content, opts)
}

// Close unregisters every tracked handle.
func (b *Bridge) Close() error {
	for _, handle := range b.Handles() {
		b.Unregister(context.Background(), handle)
	}
	return nil
}

// Handles returns the registered handles in ascending order.
func (b *Bridge) Handles() []contentkit.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	handles := make([]contentkit.Handle, 0, len(b.teardowns))
	for h := range b.teardowns {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// State returns the lifecycle state of handle.
func (b *Bridge) State(handle contentkit.Handle) HandleState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.teardowns[handle]; ok {
		return Registered
	}
	if _, ok := b.disposed[handle]; ok {
		return Disposed
	}
	return Unregistered
}

func (b *Bridge) schemeAllowed(scheme string) bool {
	if len(b.allowed) == 0 {
		return true
	}
	for _, g := range b.allowed {
		if g.Match(scheme) {
			return true
		}
	}
	return false
}

// runTeardown invokes teardown, swallowing any panic.
func runTeardown(log *slog.Logger, handle contentkit.Handle, teardown func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("Teardown failed",
				slog.Int("handle", int(handle)),
				slog.Any("err", rec))
		}
	}()
	teardown()
}
