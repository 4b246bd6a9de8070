// Package contentkit resolves URIs to readable and writable content through
// pluggable backends. A caller does not need to know whether content lives in
// the local storage engine or is served by a provider registered from the
// other side of a call boundary.
//
// # Resolution
//
// A [Resolver] maps URI schemes to backends. The reserved [LocalScheme] is
// always served by the local [Storage]; every other scheme must be claimed by
// a remote provider first:
//
//	store, _ := local.New("./storage")
//	resolver := contentkit.NewResolver(store)
//
//	teardown, err := resolver.RegisterBackend(7, "memfs", channel)
//	if errors.Is(err, contentkit.ErrSchemeConflict) {
//	    // another provider already serves memfs
//	}
//	defer teardown()
//
//	res, err := resolver.Resolve(&url.URL{Scheme: "memfs", Path: "/notes.txt"})
//	text, err := res.ReadContents(ctx, nil)
//
// Remote resources are cached per backend and keyed by their canonical URI
// string, so resolving the same URI twice returns the same instance until the
// backend is disposed. Local resources are never cached.
//
// # Optional Capabilities
//
// Writing is an optional capability. Use a type assertion to check for it:
//
//	if saver, ok := res.(contentkit.CanSave); ok {
//	    err := saver.SaveContents(ctx, "hello", nil)
//	}
//
// # Storage Drivers
//
// Storage drivers live under driver/ and register themselves by name:
//
//   - Local filesystem (github.com/gobeaver/contentkit/driver/local)
//   - In-memory (github.com/gobeaver/contentkit/driver/memory)
//   - Amazon S3 (github.com/gobeaver/contentkit/driver/s3)
//   - Google Cloud Storage (github.com/gobeaver/contentkit/driver/gcs)
//   - Azure Blob Storage (github.com/gobeaver/contentkit/driver/azure)
//   - SFTP (github.com/gobeaver/contentkit/driver/sftp)
//
// Storage can be wrapped by decorators: [NewReadOnlyStorage] rejects writes and
// [NewCachingStorage] caches metadata lookups.
//
// # Error Handling
//
//	_, err := resolver.Resolve(uri)
//	if contentkit.IsProviderNotFound(err) {
//	    // nothing serves uri.Scheme
//	}
//
//	var uriErr *contentkit.URIError
//	if errors.As(err, &uriErr) {
//	    fmt.Printf("Operation: %s, URI: %s\n", uriErr.Op, uriErr.URI)
//	}
//
// # Global Instance
//
// [Init] and [Default] manage one process-wide Resolver for simple programs.
// Its scheme map is shared by everything that uses it, so each bridge should
// build its own Resolver with [New] or [NewResolver] instead.
//
// # Configuration
//
// contentkit can be configured via environment variables with the
// CONTENTKIT_ prefix, or programmatically via the [Config] struct:
//
//	cfg := &contentkit.Config{
//	    Storage:   "local",
//	    LocalRoot: "/var/lib/content",
//	}
//	resolver, err := contentkit.New(cfg)
package contentkit
