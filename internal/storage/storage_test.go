package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/erazemk/polyswap/internal/config"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "proofs/offer-1/2025/01/abc.jpg", objectName("offer-1", now, "abc"))
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		cfg  config.MinIO
		want string
	}{
		{config.MinIO{Endpoint: "localhost:9000"}, "http://localhost:9000"},
		{config.MinIO{Endpoint: "s3.example.com", UseSSL: true}, "https://s3.example.com"},
		{config.MinIO{Endpoint: "minio:9000", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, publicBase(tt.cfg))
	}
}

func TestObjectURL(t *testing.T) {
	got := objectURL("http://localhost:9000", "proofs", "proofs/o 1/2025/01/x.jpg")
	assert.Equal(t, "http://localhost:9000/proofs/proofs/o%201/2025/01/x.jpg", got)
}
