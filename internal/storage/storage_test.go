package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fintrack/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryClient("exports")
	s := NewStorage(backend)

	require.NoError(t, s.EnsureBucket(ctx))
	assert.Equal(t, "exports", s.Bucket())

	body := "date,description\n2024-01-01,lunch\n"
	require.NoError(t, s.Put(ctx, "exports/u1/e1.csv", strings.NewReader(body), int64(len(body)), "text/csv"))
	assert.Equal(t, "text/csv", backend.ContentType("exports/u1/e1.csv"))

	r, err := s.Get(ctx, "exports/u1/e1.csv")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, body, string(got))

	require.NoError(t, s.Delete(ctx, "exports/u1/e1.csv"))
	_, err = s.Get(ctx, "exports/u1/e1.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewFromConfigRejectsDisabledBackend(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.StorageConfig{Backend: config.BackendNone})
	assert.Error(t, err)
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket")
}
