package storage

import (
	"testing"

	infraconfig "github.com/campusbill/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStorageConfig() *infraconfig.StorageConfig {
	return &infraconfig.StorageConfig{
		Endpoint:     "localhost:9000",
		Bucket:       "billing-artifacts",
		AccessKey:    "test-access",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

func TestNewS3ArtifactStorage(t *testing.T) {
	t.Run("creates storage from valid config", func(t *testing.T) {
		storage, err := NewS3ArtifactStorage(validStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "billing-artifacts", storage.GetBucket())
	})

	t.Run("requires config", func(t *testing.T) {
		_, err := NewS3ArtifactStorage(nil)
		assert.Error(t, err)
	})

	t.Run("requires bucket", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3ArtifactStorage(cfg)
		assert.Error(t, err)
	})

	t.Run("requires credentials", func(t *testing.T) {
		cfg := validStorageConfig()
		cfg.AccessKey = ""
		_, err := NewS3ArtifactStorage(cfg)
		assert.Error(t, err)

		cfg = validStorageConfig()
		cfg.SecretKey = ""
		_, err = NewS3ArtifactStorage(cfg)
		assert.Error(t, err)
	})
}

func TestS3ArtifactStorage_KeyFromRef(t *testing.T) {
	storage, err := NewS3ArtifactStorage(validStorageConfig())
	require.NoError(t, err)

	tests := []struct {
		name   string
		ref    string
		key    string
		wantOK bool
	}{
		{"canonical reference", "s3://billing-artifacts/receipts/abc.pdf", "receipts/abc.pdf", true},
		{"nested key", "s3://billing-artifacts/cuts/c-20260315.pdf", "cuts/c-20260315.pdf", true},
		{"other bucket", "s3://another/receipts/abc.pdf", "", false},
		{"no scheme", "billing-artifacts/receipts/abc.pdf", "", false},
		{"empty key", "s3://billing-artifacts/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := storage.KeyFromRef(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}
