package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gobeaver/contentkit"
	"github.com/gobeaver/contentkit/driver/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder captures sent requests so tests can answer them by hand.
type recorder struct {
	mu   sync.Mutex
	sent []*Request
	err  error
}

func (r *recorder) send(_ context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, req)
	return nil
}

func (r *recorder) last() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

func TestConnDeliver(t *testing.T) {
	rec := &recorder{}
	c := NewConn(rec.send, WithConnLogger(discard))

	f := c.Call(context.Background(), &Request{Method: MethodRead})
	req := rec.last()
	require.NotEmpty(t, req.ID)
	assert.Equal(t, 1, c.Pending())

	select {
	case <-f.Done():
		t.Fatal("future resolved before delivery")
	default:
	}

	require.NoError(t, c.Deliver(&Response{ID: req.ID, Content: "hi"}))
	resp, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 0, c.Pending())

	assert.ErrorIs(t, c.Deliver(&Response{ID: req.ID}), ErrUnknownCall)
}

func TestConnRemoteError(t *testing.T) {
	rec := &recorder{}
	c := NewConn(rec.send, WithConnLogger(discard))

	done := make(chan error, 1)
	go func() {
		_, err := c.Read(context.Background(), 3, &url.URL{Scheme: "mem", Host: "a", Path: "/b"}, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)
	req := rec.last()
	assert.Equal(t, contentkit.Handle(3), req.Handle)
	assert.Equal(t, contentkit.Components{Scheme: "mem", Authority: "a", Path: "/b"}, req.URI)

	callErr := &CallError{Code: CodeFileNotFound, Message: "mem://a/b"}
	require.NoError(t, c.Deliver(&Response{ID: req.ID, Error: callErr}))

	err := <-done
	assert.Same(t, callErr, err)
	assert.True(t, contentkit.IsNotExist(err))
}

func TestConnSendFailure(t *testing.T) {
	boom := errors.New("transport down")
	c := NewConn((&recorder{err: boom}).send, WithConnLogger(discard))

	_, err := c.Call(context.Background(), &Request{}).Wait(context.Background())
	assert.Same(t, boom, err)
	assert.Equal(t, 0, c.Pending())
}

func TestConnClose(t *testing.T) {
	rec := &recorder{}
	c := NewConn(rec.send, WithConnLogger(discard))

	f := c.Call(context.Background(), &Request{})
	require.NoError(t, c.Close())

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrConnClosed)

	_, err = c.Call(context.Background(), &Request{}).Wait(context.Background())
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestFutureWaitHonorsContext(t *testing.T) {
	c := NewConn((&recorder{}).send, WithConnLogger(discard))
	f := c.Call(context.Background(), &Request{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnAbandonedCallIsDropped(t *testing.T) {
	rec := &recorder{}
	c := NewConn(rec.send, WithConnLogger(discard))
	uri := &url.URL{Scheme: "mem", Path: "/a.txt"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Read(ctx, 1, uri, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Pending())

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	err = c.Write(canceled, 1, uri, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Pending())

	// a late answer for the dropped call matches nothing
	assert.ErrorIs(t, c.Deliver(&Response{ID: rec.last().ID}), ErrUnknownCall)
}

func TestLoopbackWithStorageProvider(t *testing.T) {
	ctx := context.Background()
	mux := NewMux()
	mux.Handle(7, NewStorageProvider(memory.New()))

	conn := NewLoopback(mux, WithConnLogger(discard))
	defer conn.Close()

	r := contentkit.NewResolver(memory.New(), contentkit.WithLogger(discard))
	_, err := r.RegisterBackend(7, "mem", conn)
	require.NoError(t, err)

	res, err := r.Resolve(&url.URL{Scheme: "mem", Host: "a", Path: "/b.txt"})
	require.NoError(t, err)

	_, err = res.ReadContents(ctx, nil)
	assert.True(t, contentkit.IsNotExist(err))

	require.NoError(t, res.(contentkit.CanSave).SaveContents(ctx, "remote text", nil))
	content, err := res.ReadContents(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "remote text", content)

	// Handle 8 has no provider on the remote side.
	_, err = r.RegisterBackend(8, "ghost", conn)
	require.NoError(t, err)
	ghost, err := r.Resolve(&url.URL{Scheme: "ghost", Path: "/x"})
	require.NoError(t, err)
	_, err = ghost.ReadContents(ctx, nil)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, CodeUnavailable, callErr.Code)
}

func TestNewCallError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{contentkit.NewURIError("resolve", "x", contentkit.ErrNotExist), CodeFileNotFound},
		{contentkit.NewURIError("create", "x", contentkit.ErrExist), CodeFileExists},
		{contentkit.NewURIError("stat", "x", contentkit.ErrIsDir), CodeFileIsADir},
		{contentkit.NewURIError("setcontent", "x", contentkit.ErrReadOnly), CodeNoPermissions},
		{contentkit.ErrUnsupportedOperation, CodeUnavailable},
		{errors.New("other"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			callErr := NewCallError(tt.err)
			assert.Equal(t, tt.code, callErr.Code)
			assert.Equal(t, tt.err.Error(), callErr.Message)
		})
	}
}
