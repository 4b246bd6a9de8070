package contentkit

// ReadOptions controls how content is read. A nil *ReadOptions means defaults.
type ReadOptions struct {
	// Encoding names the character encoding the content is decoded with.
	// Empty means the storage default (utf8).
	Encoding string `json:"encoding,omitempty"`
}

// WriteOptions controls how content is written. A nil *WriteOptions means defaults.
type WriteOptions struct {
	// Encoding names the character encoding the content is encoded with.
	Encoding string `json:"encoding,omitempty"`

	// OverwriteEncoding stores the content in Encoding even when the existing
	// entry was written with a different one.
	OverwriteEncoding bool `json:"overwriteEncoding,omitempty"`
}

// ReadEncoding returns the requested encoding, or "" for a nil receiver.
func (o *ReadOptions) ReadEncoding() string {
	if o == nil {
		return ""
	}
	return o.Encoding
}

// WriteEncoding returns the requested encoding, or "" for a nil receiver.
func (o *WriteOptions) WriteEncoding() string {
	if o == nil {
		return ""
	}
	return o.Encoding
}

// withReadDefault returns opts with Encoding set to enc when none was requested.
func withReadDefault(opts *ReadOptions, enc string) *ReadOptions {
	if enc == "" || opts.ReadEncoding() != "" {
		return opts
	}
	if opts == nil {
		return &ReadOptions{Encoding: enc}
	}
	o := *opts
	o.Encoding = enc
	return &o
}

// withWriteDefault returns opts with Encoding set to enc when none was requested.
func withWriteDefault(opts *WriteOptions, enc string) *WriteOptions {
	if enc == "" || opts.WriteEncoding() != "" {
		return opts
	}
	if opts == nil {
		return &WriteOptions{Encoding: enc}
	}
	o := *opts
	o.Encoding = enc
	return &o
}
