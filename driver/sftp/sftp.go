package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/gobeaver/contentkit"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Adapter provides an SFTP implementation of contentkit.Storage.
// The path of a file: URI is resolved below the base path on the server.
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config

	// serializes read-check-write sequences in SetContent
	writeMu sync.Mutex
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string
}

// AdapterOption is a function that configures SFTP Adapter
type AdapterOption func(*Adapter)

// WithBasePath sets the base path for SFTP operations
func WithBasePath(basePath string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = basePath
	}
}

// New creates a new SFTP storage adapter and connects to the server
func New(cfg Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config:   cfg,
		basePath: cfg.BasePath,
	}

	for _, option := range options {
		option(adapter)
	}

	if err := adapter.connect(); err != nil {
		return nil, err
	}

	return adapter, nil
}

// NewWithClient creates an adapter over an established SFTP client. The
// adapter does not reconnect a client it did not dial.
func NewWithClient(client *sftp.Client, basePath string) *Adapter {
	return &Adapter{
		client:   client,
		basePath: basePath,
	}
}

// connect establishes SSH and SFTP connections
func (a *Adapter) connect() error {
	sshConfig := &ssh.ClientConfig{
		User:            a.config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts once a host key setting exists
	}

	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.mu.Lock()
	a.sshConn = sshConn
	a.client = sftpClient
	a.mu.Unlock()

	return nil
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}

	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}

	return errors.Join(errs...)
}

// sftpClient returns a live client, redialing when the adapter owns the
// connection and it was lost.
func (a *Adapter) sftpClient() (*sftp.Client, error) {
	a.mu.Lock()
	client := a.client
	owned := a.sshConn != nil || a.config.Host != ""
	a.mu.Unlock()

	if client != nil {
		if _, err := client.Getwd(); err == nil {
			return client, nil
		}
	}
	if !owned {
		return nil, fmt.Errorf("sftp: connection closed")
	}

	if err := a.connect(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client, nil
}

// fullPath maps a file: URI to a path below the base path.
func (a *Adapter) fullPath(op, uri string) (string, error) {
	key, err := contentkit.ObjectKey(op, uri, "")
	if err != nil {
		return "", err
	}
	if a.basePath == "" {
		return key, nil
	}
	return path.Join(a.basePath, key), nil
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullPath, err := a.fullPath("exists", uri)
	if err != nil {
		return false, err
	}
	client, err := a.sftpClient()
	if err != nil {
		return false, contentkit.NewURIError("exists", uri, err)
	}

	if _, err := client.Stat(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, mapSFTPError("exists", uri, err)
	}
	return true, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("stat", uri)
	if err != nil {
		return nil, err
	}
	client, err := a.sftpClient()
	if err != nil {
		return nil, contentkit.NewURIError("stat", uri, err)
	}

	md, _, err := load(client, "stat", uri, fullPath)
	return md, err
}

// Create implements contentkit.Storage
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("create", uri)
	if err != nil {
		return nil, err
	}
	client, err := a.sftpClient()
	if err != nil {
		return nil, contentkit.NewURIError("create", uri, err)
	}

	if _, err := client.Stat(fullPath); err == nil {
		return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, mapSFTPError("create", uri, err)
	}

	if err := client.MkdirAll(path.Dir(fullPath)); err != nil {
		return nil, mapSFTPError("create", uri, err)
	}

	f, err := client.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if err != nil {
		// SFTP v3 servers report O_EXCL conflicts as a generic failure;
		// the file was created concurrently if it is there now
		if _, statErr := client.Stat(fullPath); statErr == nil {
			return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
		}
		return nil, mapSFTPError("create", uri, err)
	}
	if err := f.Close(); err != nil {
		return nil, mapSFTPError("create", uri, err)
	}

	md, _, err := load(client, "create", uri, fullPath)
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

	fullPath, err := a.fullPath("setcontent", md.URI)
	if err != nil {
		return err
	}
	client, err := a.sftpClient()
	if err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	current, _, err := load(client, "setcontent", md.URI, fullPath)
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

	f, err := client.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return mapSFTPError("setcontent", md.URI, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return mapSFTPError("setcontent", md.URI, err)
	}
	if err := f.Close(); err != nil {
		return mapSFTPError("setcontent", md.URI, err)
	}
	return nil
}

// ResolveContent implements contentkit.Storage
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("resolve", uri)
	if err != nil {
		return nil, err
	}
	client, err := a.sftpClient()
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	md, data, err := load(client, "resolve", uri, fullPath)
	if err != nil {
		return nil, err
	}

	enc := opts.ReadEncoding()
	value, err := contentkit.DecodeContent(data, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}
	md.Encoding = contentkit.NormalizeEncoding(enc)

	return &contentkit.Content{Metadata: *md, Value: value}, nil
}

// load reads the remote file and returns its metadata and bytes.
func load(client *sftp.Client, op, uri, fullPath string) (*contentkit.Metadata, []byte, error) {
	info, err := client.Stat(fullPath)
	if err != nil {
		return nil, nil, mapSFTPError(op, uri, err)
	}
	if info.IsDir() {
		return nil, nil, contentkit.NewURIError(op, uri, contentkit.ErrIsDir)
	}

	f, err := client.Open(fullPath)
	if err != nil {
		return nil, nil, mapSFTPError(op, uri, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, mapSFTPError(op, uri, err)
	}

	return &contentkit.Metadata{
		URI:              uri,
		Size:             int64(len(data)),
		LastModification: info.ModTime(),
		ETag:             contentkit.ETag(data, info.ModTime()),
	}, data, nil
}

// mapSFTPError maps SFTP errors to contentkit errors
func mapSFTPError(op, uri string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
	case errors.Is(err, os.ErrPermission):
		return contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
	}
	return contentkit.NewURIError(op, uri, err)
}

var _ contentkit.Storage = (*Adapter)(nil)
