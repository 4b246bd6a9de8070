package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/gobeaver/contentkit"
)

// maxBodySize is the maximum allowed request body size (32MB).
const maxBodySize = 32 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeSchemeConflict   = "SchemeConflict"
	CodeSchemeNotAllowed = "SchemeNotAllowed"
	CodeHandleState      = "HandleState"
	CodeProviderNotFound = "ProviderNotFound"
	CodeUnsupported      = "UnsupportedOperation"
	CodeInvalidURI       = "InvalidURI"
	CodeNotFound         = "NotFound"
	CodeBadRequest       = "BadRequest"
	CodeCallFailed       = "CallFailed"
)

// RegisterRequest is the body of POST /backends.
type RegisterRequest struct {
	Handle contentkit.Handle `json:"handle"`
	Scheme string            `json:"scheme"`
}

// BackendInfo describes one handle in GET /backends.
type BackendInfo struct {
	Handle contentkit.Handle `json:"handle"`
	State  string            `json:"state"`
}

// ReadRequest is the body of POST /contents/read.
type ReadRequest struct {
	URI     contentkit.Components   `json:"uri"`
	Options *contentkit.ReadOptions `json:"options,omitempty"`
}

// ReadResponse is returned by POST /contents/read.
type ReadResponse struct {
	Content string `json:"content"`
}

// WriteRequest is the body of POST /contents/write.
type WriteRequest struct {
	URI     contentkit.Components    `json:"uri"`
	Content string                   `json:"content"`
	Options *contentkit.WriteOptions `json:"options,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler serves a Bridge over HTTP.
type Handler struct {
	bridge *Bridge
	log    *slog.Logger
}

// NewHandler creates the HTTP binding for b.
func NewHandler(b *Bridge, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{bridge: b, log: log}
}

// Router returns the chi router with every bridge route.
func (h *Handler) Router() http.Handler {
	mux := chi.NewRouter()

	mux.With(h.httpLogger).Get("/backends", h.HandleList)
	mux.With(h.httpLogger).Post("/backends", h.HandleRegister)
	mux.With(h.httpLogger).Delete("/backends/{handle}", h.HandleUnregister)
	mux.With(h.httpLogger).Post("/contents/read", h.HandleRead)
	mux.With(h.httpLogger).Post("/contents/write", h.HandleWrite)

	mux.Get("/livez", h.handleLivenessCheck)
	return mux
}

func (h *Handler) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(h.log, next)
}

// HandleList lists registered handles.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	handles := h.bridge.Handles()
	infos := make([]BackendInfo, 0, len(handles))
	for _, handle := range handles {
		infos = append(infos, BackendInfo{Handle: handle, State: h.bridge.State(handle).String()})
	}
	writeJSON(w, http.StatusOK, infos)
}

// HandleRegister registers a backend.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Scheme == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "scheme is required")
		return
	}

	if err := h.bridge.Register(r.Context(), req.Handle, req.Scheme); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnregister disposes the backend owned by the handle in the URL.
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	handle, err := strconv.Atoi(chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid handle")
		return
	}

	h.bridge.Unregister(r.Context(), contentkit.Handle(handle))
	w.WriteHeader(http.StatusNoContent)
}

// HandleRead reads content by URI components.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if !h.decode(w, r, &req) {
		return
	}

	content, err := h.bridge.Read(r.Context(), req.URI, req.Options)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{Content: content})
}

// HandleWrite writes content by URI components.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.bridge.Write(r.Context(), req.URI, req.Content, req.Options); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.WarnContext(r.Context(), "Request failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()))
	}
	writeError(w, status, code, err.Error())
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, contentkit.ErrSchemeConflict):
		return http.StatusConflict, CodeSchemeConflict
	case errors.Is(err, ErrSchemeNotAllowed):
		return http.StatusForbidden, CodeSchemeNotAllowed
	case errors.Is(err, ErrHandleRegistered), errors.Is(err, ErrHandleDisposed):
		return http.StatusConflict, CodeHandleState
	case errors.Is(err, contentkit.ErrProviderNotFound):
		return http.StatusNotFound, CodeProviderNotFound
	case errors.Is(err, contentkit.ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed, CodeUnsupported
	case errors.Is(err, contentkit.ErrInvalidURI):
		return http.StatusBadRequest, CodeInvalidURI
	case errors.Is(err, contentkit.ErrNotExist):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusBadGateway, CodeCallFailed
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
