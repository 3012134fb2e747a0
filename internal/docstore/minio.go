package docstore

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MinIOConfig configures an S3-compatible document bucket.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// MinIO reads documents from an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO creates a MinIO source. It does not contact the server.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, eris.New("docstore: minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "docstore: create minio client")
	}
	return &MinIO{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinIO) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Stat implements Source.
func (s *MinIO) Stat(ctx context.Context, name string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		return 0, s.wrap(err, "stat", name)
	}
	return info.Size, nil
}

// Read implements Source.
func (s *MinIO) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(err, "get", name)
	}
	defer obj.Close() //nolint:errcheck

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(err, "read", name)
	}
	zap.L().Debug("docstore: object read",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key(name)),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

func (s *MinIO) wrap(err error, action, name string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return eris.Wrapf(ErrNotFound, "docstore: %s %s/%s", action, s.bucket, s.key(name))
	}
	return eris.Wrapf(err, "docstore: %s %s/%s", action, s.bucket, s.key(name))
}
