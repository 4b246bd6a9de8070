package contentkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance. defaultMu guards all three; the resolver is read only
// after defaultOnce ran.
var (
	defaultMu       sync.Mutex
	defaultResolver *Resolver
	defaultOnce     sync.Once
	defaultErr      error
)

// Builder provides a way to create Resolver instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Config loads the configuration using the builder's prefix
func (b *Builder) Config() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New creates a new Resolver using the builder's prefix
func (b *Builder) New(opts ...ResolverOption) (*Resolver, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global resolver instance. The global instance owns one
// scheme map for the whole process; components that register backends of
// their own, such as bridges, should build their own Resolver with New.
func Init(configs ...*Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultResolver, defaultErr = New(cfg)
	})

	return defaultErr
}

// Default returns the global instance, initializing if needed
func Default() (*Resolver, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultResolver == nil {
		// Reset ran between Init and here
		return nil, errors.New("default resolver was reset")
	}
	return defaultResolver, nil
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultResolver = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// New creates a Resolver whose local storage is built from cfg.
// The storage driver named by cfg.Storage must have been registered, usually by
// importing its package for side effects.
func New(cfg *Config, opts ...ResolverOption) (*Resolver, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	storage, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	return NewResolver(storage, opts...), nil
}

// NewStorage creates the storage described by cfg with its decorators applied.
func NewStorage(cfg *Config) (Storage, error) {
	storage, err := CreateStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	if cfg.CacheTTLSeconds > 0 {
		storage = NewCachingStorage(storage, NewMemoryCache(),
			WithCacheTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second))
	}

	if cfg.LocalReadOnly {
		storage = NewReadOnlyStorage(storage)
	}

	if enc := NormalizeEncoding(cfg.DefaultEncoding); enc != EncodingUTF8 {
		storage = &defaultOptionsStorage{
			storage:  storage,
			encoding: enc,
		}
	}

	return storage, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.Storage == "" {
		return errors.New("storage is required")
	}

	switch cfg.Storage {
	case "local":
		if cfg.LocalRoot == "" {
			return errors.New("local root is required for local storage")
		}
	case "memory":
		if cfg.MemoryMaxSize < 0 {
			return errors.New("memory max size must not be negative")
		}
	case "s3":
		if cfg.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 storage")
		}
		// Access keys can be provided via IAM roles, so not always required
	case "gcs":
		if cfg.GCSBucket == "" {
			return errors.New("GCS bucket is required for GCS storage")
		}
	case "azure":
		if cfg.AzureContainerName == "" {
			return errors.New("azure container name is required for azure storage")
		}
	case "sftp":
		if cfg.SFTPHost == "" {
			return errors.New("SFTP host is required for SFTP storage")
		}
	}

	if cfg.CacheTTLSeconds < 0 {
		return errors.New("cache TTL must not be negative")
	}

	if cfg.RemoteTimeoutSeconds < 0 {
		return errors.New("remote timeout must not be negative")
	}

	if _, err := EncodeContent("", cfg.DefaultEncoding); err != nil {
		return fmt.Errorf("default encoding: %w", err)
	}

	return nil
}

// defaultOptionsStorage wraps a Storage to apply the configured encoding
// when callers do not request one.
type defaultOptionsStorage struct {
	storage  Storage
	encoding string
}

func (d *defaultOptionsStorage) Exists(ctx context.Context, uri string) (bool, error) {
	return d.storage.Exists(ctx, uri)
}

func (d *defaultOptionsStorage) Stat(ctx context.Context, uri string) (*Metadata, error) {
	return d.storage.Stat(ctx, uri)
}

func (d *defaultOptionsStorage) Create(ctx context.Context, uri string) (*Metadata, error) {
	return d.storage.Create(ctx, uri)
}

func (d *defaultOptionsStorage) SetContent(ctx context.Context, md *Metadata, content string, opts *WriteOptions) error {
	// Entries that already carry an encoding keep it unless overwritten.
	if md != nil && md.Encoding != "" {
		return d.storage.SetContent(ctx, md, content, opts)
	}
	return d.storage.SetContent(ctx, md, content, withWriteDefault(opts, d.encoding))
}

func (d *defaultOptionsStorage) ResolveContent(ctx context.Context, uri string, opts *ReadOptions) (*Content, error) {
	if opts.ReadEncoding() == "" {
		md, err := d.storage.Stat(ctx, uri)
		if err != nil {
			return nil, err
		}
		if md.Encoding != "" {
			return d.storage.ResolveContent(ctx, uri, opts)
		}
	}
	return d.storage.ResolveContent(ctx, uri, withReadDefault(opts, d.encoding))
}
