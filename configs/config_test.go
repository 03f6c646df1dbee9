package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DOCSTORE_DRIVER", "")
	t.Setenv("CACHE_TTL", "")

	cfg := LoadConfig()
	assert.Equal(t, 10501, cfg.DBPort)
	assert.Equal(t, "postgres", cfg.DocStoreDriver)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 6379, cfg.RedisPort)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DOCSTORE_DRIVER", "mongo")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("EMAIL_ENDPOINT", "https://mail.example.com/send")

	cfg := LoadConfig()
	assert.Equal(t, "mongo", cfg.DocStoreDriver)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "https://mail.example.com/send", cfg.EmailEndpoint)
}
