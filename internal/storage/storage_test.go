package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummy-rest/apiserver/config"
)

type fakeBackend struct {
	docs     []Document
	writeErr error
}

func (f *fakeBackend) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeBackend) Write(ctx context.Context, doc Document) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeBackend) Bucket() string { return "exports" }

func TestPutJSON(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend)

	err := s.PutJSON(context.Background(), "/exports/u1/a.json", []byte(`{"ok":true}`), map[string]string{"Owner": "u1"})
	require.NoError(t, err)
	require.Len(t, backend.docs, 1)

	doc := backend.docs[0]
	assert.Equal(t, "exports/u1/a.json", doc.Key)
	assert.Equal(t, "a.json", doc.Filename())
	assert.Equal(t, `{"ok":true}`, string(doc.Data))
	assert.Equal(t, "application/json", doc.ContentType)
	assert.Equal(t, map[string]string{"owner": "u1"}, doc.Metadata)
	assert.Equal(t, "exports", s.Bucket())
}

func TestPutJSONRequiresKey(t *testing.T) {
	backend := &fakeBackend{}
	err := New(backend).PutJSON(context.Background(), " / ", nil, nil)
	assert.EqualError(t, err, "object key is required")
	assert.Empty(t, backend.docs)
}

func TestPutJSONWrapsBackendError(t *testing.T) {
	boom := errors.New("boom")
	err := New(&fakeBackend{writeErr: boom}).PutJSON(context.Background(), "a.json", []byte("{}"), nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "write a.json")
}

func TestOpenWithoutDriver(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "s3"})
	assert.EqualError(t, err, `unknown storage driver "s3"`)
}

func TestOpenMinioRequiresCredentials(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{
		Driver: "minio",
		Minio:  config.MinioConfig{Endpoint: "localhost:9000", Bucket: "exports"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access key")
}

func TestOpenGCSRequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "gcs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gcs bucket is required")
}
