package local

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobeaver/contentkit"
)

// Adapter provides a local filesystem implementation of contentkit.Storage.
// Entries are addressed by file: URIs whose path is resolved under root.
type Adapter struct {
	root string

	// mu serializes mutations so that the ETag check in SetContent and the
	// write that follows it observe the same file.
	mu sync.Mutex
}

// New creates a new local storage adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute directory entries are stored under.
func (a *Adapter) Root() string {
	return a.root
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullPath, err := a.resolve("exists", uri)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, contentkit.NewURIError("exists", uri, err)
	}
	return true, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("stat", uri)
	if err != nil {
		return nil, err
	}

	md, _, err := a.load("stat", uri, fullPath)
	return md, err
}

// Create implements contentkit.Storage
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("create", uri)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, contentkit.NewURIError("create", uri, err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
		}
		return nil, contentkit.NewURIError("create", uri, err)
	}
	if err := f.Close(); err != nil {
		return nil, contentkit.NewURIError("create", uri, err)
	}

	md, _, err := a.load("create", uri, fullPath)
	return md, err
}

// SetContent implements contentkit.Storage
func (a *Adapter) SetContent(ctx context.Context, md *contentkit.Metadata, content string, opts *contentkit.WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if md == nil {
		return contentkit.NewURIError("setcontent", "", contentkit.ErrInvalidURI)
	}

	fullPath, err := a.resolve("setcontent", md.URI)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current, _, err := a.load("setcontent", md.URI, fullPath)
	if err != nil {
		return err
	}
	if err := contentkit.CheckETag(md, current.ETag); err != nil {
		return err
	}

	data, err := contentkit.EncodeContent(content, contentkit.WriteEncodingFor(md.Encoding, opts))
	if err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}
	return nil
}

// ResolveContent implements contentkit.Storage
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("resolve", uri)
	if err != nil {
		return nil, err
	}

	md, data, err := a.load("resolve", uri, fullPath)
	if err != nil {
		return nil, err
	}

	enc := opts.ReadEncoding()
	if enc == "" {
		enc = md.Encoding
	}
	value, err := contentkit.DecodeContent(data, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}
	md.Encoding = contentkit.NormalizeEncoding(enc)

	return &contentkit.Content{Metadata: *md, Value: value}, nil
}

// load reads the file at fullPath and returns its metadata and bytes.
func (a *Adapter) load(op, uri, fullPath string) (*contentkit.Metadata, []byte, error) {
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
		}
		return nil, nil, contentkit.NewURIError(op, uri, err)
	}
	if info.IsDir() {
		return nil, nil, contentkit.NewURIError(op, uri, contentkit.ErrIsDir)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, nil, contentkit.NewURIError(op, uri, err)
	}

	return &contentkit.Metadata{
		URI:              uri,
		Size:             info.Size(),
		LastModification: info.ModTime(),
		ETag:             contentkit.ETag(data, info.ModTime()),
	}, data, nil
}

// resolve maps a file: URI to a path under the adapter root.
func (a *Adapter) resolve(op, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrInvalidURI)
	}
	if u.Scheme != contentkit.LocalScheme {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
	}

	p := u.Path
	if u.Opaque != "" {
		p = u.Opaque
	}
	if p == "" {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrInvalidURI)
	}

	fullPath := filepath.Join(a.root, filepath.FromSlash(p))
	if !isPathUnderRoot(a.root, fullPath) || fullPath == a.root {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
	}
	return fullPath, nil
}

// isPathUnderRoot checks if a path is under the root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var _ contentkit.Storage = (*Adapter)(nil)
