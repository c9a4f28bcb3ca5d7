package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresMongoAndSecret(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "s3cret")
	_, err := Load()
	assert.EqualError(t, err, "MONGO_URI is required")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "90")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ADMIN_EMAILS", " Boss@Clinic.org, ,ops@clinic.org")
	t.Setenv("REDIS_URL", "redis://app:pw@cache:6380")
	t.Setenv("RATE_LIMIT_BURST", "oops")
	t.Setenv("AUDIT_DB_MAX_CONNS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clinic", cfg.MongoDatabase)
	assert.Equal(t, 90*time.Second, cfg.TokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"boss@clinic.org", "ops@clinic.org"}, cfg.AdminEmails)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "app", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, PoolConfig{MaxConns: 2, MinConns: 0}, cfg.AuditPool)
	assert.False(t, cfg.SecureCookies())
}
