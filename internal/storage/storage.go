package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yummy-rest/apiserver/config"
)

const contentTypeJSON = "application/json"

// Document is a single object written to the export bucket.
type Document struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Filename is the base name offered to clients downloading the document.
func (d Document) Filename() string {
	return path.Base(d.Key)
}

// Backend is an object store holding a single bucket.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Write(ctx context.Context, doc Document) error
	Bucket() string
}

// Storage writes export documents to a backend.
type Storage struct {
	backend Backend
}

// New constructs a Storage wrapper for the provided backend.
func New(backend Backend) *Storage {
	return &Storage{backend: backend}
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// PutJSON writes an encoded JSON document under key. Metadata keys are
// lower-cased since both backends normalise them.
func (s *Storage) PutJSON(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return errors.New("object key is required")
	}

	doc := Document{Key: key, Data: data, ContentType: contentTypeJSON}
	if len(metadata) > 0 {
		doc.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			doc.Metadata[strings.ToLower(k)] = v
		}
	}

	if err := s.backend.Write(ctx, doc); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Open builds the backend named by cfg.Driver. It returns nil when no
// driver is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "minio":
		backend, err := NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return New(backend), nil
	case "gcs":
		backend, err := NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
