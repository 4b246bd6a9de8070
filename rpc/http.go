package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/gobeaver/contentkit"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/gobeaver/contentkit/rpc"

	// maxBodySize is the maximum accepted request or response body (32MB).
	maxBodySize = 32 << 20
)

// HTTPChannel is a contentkit.Channel that posts each call as JSON to
// {endpoint}/read or {endpoint}/write.
type HTTPChannel struct {
	endpoint string
	client   *http.Client
	tracer   trace.Tracer
}

// HTTPOption configures an HTTPChannel.
type HTTPOption func(*HTTPChannel)

// WithHTTPClient sets the client used for calls.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPChannel) {
		c.client = client
	}
}

// WithTimeout bounds every call.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPChannel) {
		c.client = &http.Client{Timeout: timeout}
	}
}

// WithTracerProvider sets the provider spans are recorded with.
func WithTracerProvider(tp trace.TracerProvider) HTTPOption {
	return func(c *HTTPChannel) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// NewHTTPChannel creates a channel to the provider served at endpoint.
func NewHTTPChannel(endpoint string, opts ...HTTPOption) *HTTPChannel {
	c := &HTTPChannel{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   http.DefaultClient,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read implements contentkit.Channel.
func (c *HTTPChannel) Read(ctx context.Context, handle contentkit.Handle, uri *url.URL, opts *contentkit.ReadOptions) (string, error) {
	resp, err := c.do(ctx, &Request{
		ID:          uuid.NewString(),
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
func (c *HTTPChannel) Write(ctx context.Context, handle contentkit.Handle, uri *url.URL, content string, opts *contentkit.WriteOptions) error {
	_, err := c.do(ctx, &Request{
		ID:           uuid.NewString(),
		Method:       MethodWrite,
		Handle:       handle,
		URI:          contentkit.ComponentsOf(uri),
		Content:      content,
		WriteOptions: opts,
	})
	return err
}

func (c *HTTPChannel) do(ctx context.Context, req *Request) (resp *Response, err error) {
	ctx, span := c.tracer.Start(ctx, "contentkit.rpc."+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.id", req.ID),
			attribute.Int("contentkit.handle", int(req.Handle)),
			attribute.String("contentkit.scheme", req.URI.Scheme),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+req.Method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	resp = &Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("rpc: unexpected status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("rpc: decoding response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc: unexpected status %d", httpResp.StatusCode)
	}
	return resp, nil
}

// NewHandler serves p over HTTP for HTTPChannel clients. Provider failures are
// returned as CallErrors in a 200 response; malformed requests get 400.
func NewHandler(p Provider, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{provider: p, log: log}

	mux := chi.NewRouter()
	mux.Use(h.httpLogger)
	mux.Post("/"+MethodRead, h.handleCall(MethodRead))
	mux.Post("/"+MethodWrite, h.handleCall(MethodWrite))
	return mux
}

type handler struct {
	provider Provider
	log      *slog.Logger
}

func (h *handler) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(h.log, next)
}

func (h *handler) handleCall(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		var req Request
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, &Response{Error: &CallError{Code: CodeUnknown, Message: "invalid request body"}})
			return
		}
		req.Method = method

		resp := Serve(ctx, h.provider, &req)
		if resp.Error != nil {
			h.log.Debug("Call failed",
				slog.String("id", req.ID),
				slog.String("method", method),
				slog.String("code", resp.Error.Code))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
