package contentkit

import (
	"net/url"
	"path"
	"strings"
)

// LocalScheme is the reserved scheme served by the local storage engine.
// Resolution of this scheme never consults registered backends.
const LocalScheme = "file"

// Components is the structured wire form of a URI.
type Components struct {
	Scheme    string `json:"scheme"`
	Authority string `json:"authority,omitempty"`
	Path      string `json:"path,omitempty"`
	Query     string `json:"query,omitempty"`
	Fragment  string `json:"fragment,omitempty"`
}

// Revive turns wire components into a URI value. A relative path is rooted,
// so it can never be read back as an authority.
func Revive(c Components) (*url.URL, error) {
	if c.Scheme == "" {
		return nil, NewURIError("revive", c.Path, ErrInvalidURI)
	}

	p := c.Path
	if p != "" && p[0] != '/' {
		p = "/" + p
	}

	return &url.URL{
		Scheme:   c.Scheme,
		Host:     c.Authority,
		Path:     p,
		RawQuery: c.Query,
		Fragment: c.Fragment,
	}, nil
}

// ComponentsOf returns the wire form of u.
func ComponentsOf(u *url.URL) Components {
	return Components{
		Scheme:    u.Scheme,
		Authority: u.Host,
		Path:      u.Path,
		Query:     u.RawQuery,
		Fragment:  u.Fragment,
	}
}

// CanonicalString returns the canonical string form of u. It is the cache key
// used by backends and the address handed to local storage.
func CanonicalString(u *url.URL) string {
	return u.String()
}

// ObjectKey maps a LocalScheme URI to a slash-separated key below prefix, for
// storage drivers addressing flat object namespaces. Other schemes fail with
// ErrNotAllowed; a URI naming the root fails with ErrInvalidURI.
func ObjectKey(op, uri, prefix string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", NewURIError(op, uri, ErrInvalidURI)
	}
	if u.Scheme != LocalScheme {
		return "", NewURIError(op, uri, ErrNotAllowed)
	}

	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if p == "" {
		return "", NewURIError(op, uri, ErrInvalidURI)
	}
	return prefix + p, nil
}
