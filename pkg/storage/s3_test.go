package storage

import (
	"testing"

	"mailspot/config"

	"github.com/stretchr/testify/assert"
)

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com",
		publicBaseURL(config.StorageConfig{Bucket: "art", PublicBaseURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://minio:9000/art",
		publicBaseURL(config.StorageConfig{Bucket: "art", Endpoint: "http://minio:9000"}))
	assert.Equal(t, "https://art.s3.us-east-1.amazonaws.com",
		publicBaseURL(config.StorageConfig{Bucket: "art", Region: "us-east-1"}))
}

func TestPublicURL(t *testing.T) {
	s := &S3Store{publicBaseURL: "https://cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/artwork/2026/a.png", s.PublicURL("/artwork/2026/a.png"))
}
