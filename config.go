package contentkit

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Storage driver behind the local scheme (local, memory, s3, gcs, azure, sftp)
	Storage string `env:"CONTENTKIT_STORAGE,default:local"`

	// Local driver configuration
	LocalRoot     string `env:"CONTENTKIT_LOCAL_ROOT,default:./storage"`
	LocalReadOnly bool   `env:"CONTENTKIT_LOCAL_READ_ONLY,default:false"`

	// Memory driver configuration
	MemoryMaxSize int64 `env:"CONTENTKIT_MEMORY_MAX_SIZE,default:0"` // 0 = unlimited

	// S3 driver configuration
	S3Region          string `env:"CONTENTKIT_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"CONTENTKIT_S3_BUCKET"`
	S3Prefix          string `env:"CONTENTKIT_S3_PREFIX"`
	S3Endpoint        string `env:"CONTENTKIT_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"CONTENTKIT_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"CONTENTKIT_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"CONTENTKIT_S3_FORCE_PATH_STYLE,default:false"`

	// GCS (Google Cloud Storage) driver configuration
	GCSBucket          string `env:"CONTENTKIT_GCS_BUCKET"`
	GCSPrefix          string `env:"CONTENTKIT_GCS_PREFIX"`
	GCSCredentialsFile string `env:"CONTENTKIT_GCS_CREDENTIALS_FILE"` // Path to service account JSON

	// Azure Blob Storage driver configuration
	AzureAccountName   string `env:"CONTENTKIT_AZURE_ACCOUNT_NAME"`
	AzureAccountKey    string `env:"CONTENTKIT_AZURE_ACCOUNT_KEY"`
	AzureContainerName string `env:"CONTENTKIT_AZURE_CONTAINER_NAME"`
	AzurePrefix        string `env:"CONTENTKIT_AZURE_PREFIX"`
	AzureEndpoint      string `env:"CONTENTKIT_AZURE_ENDPOINT"` // Optional custom endpoint

	// SFTP driver configuration
	SFTPHost       string `env:"CONTENTKIT_SFTP_HOST"`
	SFTPPort       int    `env:"CONTENTKIT_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"CONTENTKIT_SFTP_USERNAME"`
	SFTPPassword   string `env:"CONTENTKIT_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"CONTENTKIT_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"CONTENTKIT_SFTP_BASE_PATH"`

	// Metadata cache in front of the storage driver; 0 disables it
	CacheTTLSeconds int `env:"CONTENTKIT_CACHE_TTL_SECONDS,default:0"`

	// Encoding applied when callers do not request one
	DefaultEncoding string `env:"CONTENTKIT_DEFAULT_ENCODING,default:utf8"`

	// Bridge configuration
	AllowedSchemes string `env:"CONTENTKIT_ALLOWED_SCHEMES,default:*"` // comma-separated glob patterns
	ListenAddr     string `env:"CONTENTKIT_LISTEN_ADDR,default:127.0.0.1:8080"`

	// Remote side reached by remote resources
	RemoteEndpoint       string `env:"CONTENTKIT_REMOTE_ENDPOINT"`
	RemoteTimeoutSeconds int    `env:"CONTENTKIT_REMOTE_TIMEOUT_SECONDS,default:30"`

	// OTLP/HTTP trace collector; tracing is disabled when empty
	OTelEndpoint string `env:"CONTENTKIT_OTEL_ENDPOINT"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
