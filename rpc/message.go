// Package rpc carries contentkit channel calls to the remote side that serves
// a scheme, and back.
//
// A Conn matches asynchronous responses to the requests that caused them and
// hands callers a Future per call. NewLoopback wires a Conn to an in-process
// Provider; HTTPChannel and NewHandler carry the same messages over HTTP.
package rpc

import (
	"errors"
	"fmt"

	"github.com/gobeaver/contentkit"
)

// Methods carried by a Request.
const (
	MethodRead  = "read"
	MethodWrite = "write"
)

// Request is one call addressed to a remote backend.
type Request struct {
	ID           string                   `json:"id"`
	Method       string                   `json:"method"`
	Handle       contentkit.Handle        `json:"handle"`
	URI          contentkit.Components    `json:"uri"`
	Content      string                   `json:"content,omitempty"`
	ReadOptions  *contentkit.ReadOptions  `json:"readOptions,omitempty"`
	WriteOptions *contentkit.WriteOptions `json:"writeOptions,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID      string     `json:"id"`
	Content string     `json:"content,omitempty"`
	Error   *CallError `json:"error,omitempty"`
}

// Error codes reported by the remote side.
const (
	CodeFileNotFound  = "FileNotFound"
	CodeFileExists    = "FileExists"
	CodeFileIsADir    = "FileIsADirectory"
	CodeNoPermissions = "NoPermissions"
	CodeUnavailable   = "Unavailable"
	CodeUnknown       = "Unknown"
)

// CallError is a failure reported by the remote side of a call.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("remote call failed (%s): %s", e.Code, e.Message)
}

// Is lets errors.Is match a CallError against the contentkit sentinel its
// code stands for.
func (e *CallError) Is(target error) bool {
	switch e.Code {
	case CodeFileNotFound:
		return target == contentkit.ErrNotExist
	case CodeFileExists:
		return target == contentkit.ErrExist
	case CodeFileIsADir:
		return target == contentkit.ErrIsDir
	case CodeNoPermissions:
		return target == contentkit.ErrNotAllowed
	case CodeUnavailable:
		return target == contentkit.ErrUnsupportedOperation || target == contentkit.ErrProviderNotFound
	}
	return false
}

// NewCallError converts err into the CallError sent back to the caller.
func NewCallError(err error) *CallError {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, contentkit.ErrNotExist):
		code = CodeFileNotFound
	case errors.Is(err, contentkit.ErrExist):
		code = CodeFileExists
	case errors.Is(err, contentkit.ErrIsDir):
		code = CodeFileIsADir
	case errors.Is(err, contentkit.ErrNotAllowed), errors.Is(err, contentkit.ErrReadOnly):
		code = CodeNoPermissions
	case errors.Is(err, contentkit.ErrUnsupportedOperation), errors.Is(err, contentkit.ErrProviderNotFound):
		code = CodeUnavailable
	}
	return &CallError{Code: code, Message: err.Error()}
}
