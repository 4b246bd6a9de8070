package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gobeaver/contentkit"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

var (
	// ErrConnClosed is returned for calls pending on, or issued to, a closed Conn.
	ErrConnClosed = errors.New("rpc: connection closed")
	// ErrUnknownCall is returned by Deliver for a response matching no pending call.
	ErrUnknownCall = errors.New("rpc: response for unknown call")
)

// SendFunc hands a request to the transport. It must not block waiting for
// the response; the response arrives through Conn.Deliver.
type SendFunc func(ctx context.Context, req *Request) error

// Future is the pending result of one call.
type Future struct {
	done chan struct{}
	once sync.Once

	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(resp *Response, err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. A remote failure
// is returned as a *CallError.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if f.err != nil {
		return nil, f.err
	}
	if f.resp.Error != nil {
		return nil, f.resp.Error
	}
	return f.resp, nil
}

// Conn is a contentkit.Channel that matches responses to requests by ID.
type Conn struct {
	send SendFunc
	log  *slog.Logger

	mu      sync.Mutex
	pending map[string]*Future
	closed  atomic.Bool
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithConnLogger sets the logger used for dropped responses.
func WithConnLogger(log *slog.Logger) ConnOption {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// NewConn creates a Conn sending requests through send.
func NewConn(send SendFunc, opts ...ConnOption) *Conn {
	c := &Conn{
		send:    send,
		log:     slog.Default(),
		pending: make(map[string]*Future),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends req and returns the Future of its response. req.ID is assigned here.
func (c *Conn) Call(ctx context.Context, req *Request) *Future {
	f := newFuture()
	req.ID = uuid.NewString()

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		f.resolve(nil, ErrConnClosed)
		return f
	}
	c.pending[req.ID] = f
	c.mu.Unlock()

	if err := c.send(ctx, req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		f.resolve(nil, err)
	}
	return f
}

// Deliver completes the pending call resp answers.
func (c *Conn) Deliver(resp *Response) error {
	c.mu.Lock()
	f, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		c.log.Debug("Dropping response for unknown call", slog.String("id", resp.ID))
		return ErrUnknownCall
	}
	f.resolve(resp, nil)
	return nil
}

// forget drops the pending call id and fails its future with err. Used when
// the caller stops waiting, so an unanswered call does not stay pending.
func (c *Conn) forget(id string, err error) {
	c.mu.Lock()
	f, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ok {
		f.resolve(nil, err)
	}
}

// roundTrip calls req and waits for its response, dropping the call when ctx
// ends first.
func (c *Conn) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.Call(ctx, req).Wait(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		c.forget(req.ID, err)
	}
	return resp, err
}

// Pending returns the number of calls awaiting a response.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending call with ErrConnClosed. Later calls fail the same way.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed.Store(true)
	pending := c.pending
	c.pending = make(map[string]*Future)
	c.mu.Unlock()

	for _, f := range pending {
		f.resolve(nil, ErrConnClosed)
	}
	return nil
}

// Read implements contentkit.Channel.
func (c *Conn) Read(ctx context.Context, handle contentkit.Handle, uri *url.URL, opts *contentkit.ReadOptions) (string, error) {
	resp, err := c.roundTrip(ctx, &Request{
		Method:      MethodRead,
		Handle:      handle,
		URI:         contentkit.ComponentsOf(uri),
		ReadOptions: opts,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Write implements contentkit.Channel.
func (c *Conn) Write(ctx context.Context, handle contentkit.Handle, uri *url.URL, content string, opts *contentkit.WriteOptions) error {
	_, err := c.roundTrip(ctx, &Request{
		Method:       MethodWrite,
		Handle:       handle,
		URI:          contentkit.ComponentsOf(uri),
		Content:      content,
		WriteOptions: opts,
	})
	return err
}

var _ contentkit.Channel = (*Conn)(nil)
