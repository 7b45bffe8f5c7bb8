package scenestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyFormat(t *testing.T) {
	cfg := &Config{BucketName: "quillia-scenes"}
	key := cfg.ObjectKey("abc-123", "image/jpeg", 2026, 4)
	assert.Equal(t, "scenes/2026/04/abc-123.jpg", key)

	key = cfg.ObjectKey("abc-123", "", 2026, 12)
	assert.Equal(t, "scenes/2026/12/abc-123.png", key)
}

func TestPublicURLPrecedence(t *testing.T) {
	cfg := &Config{
		BucketName:    "quillia-scenes",
		Region:        "eu-central-1",
		PublicBaseURL: "https://cdn.example.com/",
	}
	assert.Equal(t, "https://cdn.example.com/scenes/2026/04/a.png", cfg.PublicURL("scenes/2026/04/a.png"))

	cfg.PublicBaseURL = ""
	cfg.EndpointURL = "https://s3.example.com"
	assert.Equal(t, "https://s3.example.com/quillia-scenes/scenes/2026/04/a.png", cfg.PublicURL("scenes/2026/04/a.png"))

	cfg.EndpointURL = ""
	assert.Equal(t, "https://quillia-scenes.s3.eu-central-1.amazonaws.com/scenes/2026/04/a.png", cfg.PublicURL("scenes/2026/04/a.png"))
}

func TestLoadConfigDisabledSkipsValidation(t *testing.T) {
	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}
