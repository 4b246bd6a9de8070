package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/contentkit"
	"google.golang.org/api/option"
)

func init() {
	contentkit.RegisterStorage("gcs", func(cfg *contentkit.Config) (contentkit.Storage, error) {
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS bucket is required")
		}

		// Without a credentials file the client falls back to
		// GOOGLE_APPLICATION_CREDENTIALS or default credentials
		var clientOpts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}

		client, err := storage.NewClient(context.Background(), clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}

		var options []AdapterOption
		if cfg.GCSPrefix != "" {
			options = append(options, WithPrefix(cfg.GCSPrefix))
		}

		return New(client, cfg.GCSBucket, options...), nil
	})
}
