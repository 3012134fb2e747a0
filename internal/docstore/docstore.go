// Package docstore reads lease documents from local disk, an S3-compatible
// bucket or an FTP server.
package docstore

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a document does not exist in a source.
var ErrNotFound = errors.New("docstore: document not found")

// Source reads lease documents by name.
type Source interface {
	// Stat returns the document size in bytes.
	Stat(ctx context.Context, name string) (int64, error)
	// Read returns the document contents.
	Read(ctx context.Context, name string) ([]byte, error)
}

// Drivers.
const (
	DriverFS    = "fs"
	DriverMinIO = "minio"
	DriverFTP   = "ftp"
)

// Config selects and configures a Source.
type Config struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Dir    string `yaml:"dir" mapstructure:"dir"`

	MinIO MinIOConfig `yaml:"minio" mapstructure:"minio"`
	FTP   FTPConfig   `yaml:"ftp" mapstructure:"ftp"`
}

// New builds the Source named by cfg.Driver. An empty driver reads from
// cfg.Dir on local disk.
func New(cfg Config) (Source, error) {
	switch cfg.Driver {
	case "", DriverFS:
		return NewFS(cfg.Dir), nil
	case DriverMinIO:
		return NewMinIO(cfg.MinIO)
	case DriverFTP:
		return NewFTP(cfg.FTP)
	default:
		return nil, eris.Errorf("docstore: unknown driver %q", cfg.Driver)
	}
}

// Media types of lease documents.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeText = "text/plain"
)

// MediaType guesses a document's media type from its name. Anything that
// is not plain text is sent as PDF.
func MediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".text", ".md":
		return MediaTypeText
	default:
		return MediaTypePDF
	}
}
