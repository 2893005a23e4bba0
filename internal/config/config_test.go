package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEDULE_MIN_LEAD_MIN", "90")
	t.Setenv("SCHEDULE_REOPEN_ON_CAPACITY", "true")
	t.Setenv("OTP_TTL_MIN", "10")
	t.Setenv("MP_ACCESS_TOKEN", "  TEST-token  ")
	t.Setenv("SWEEP_CRON", "*/5 * * * *")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.Schedules.MinLeadTime)
	assert.True(t, cfg.Schedules.ReopenOnCapacity)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, "TEST-token", cfg.MercadoPago.AccessToken)
	assert.Equal(t, "*/5 * * * *", cfg.SweepCron)
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("OTP_RATE_LIMIT", "many")
	t.Setenv("SCHEDULE_REOPEN_ON_CAPACITY", "maybe")

	cfg := Load()

	assert.Equal(t, 5, cfg.OTP.RateLimit)
	assert.False(t, cfg.Schedules.ReopenOnCapacity)
}

func TestGetEnv_Default(t *testing.T) {
	t.Setenv("FASTPAYMENT_UNSET_KEY", "")
	assert.Equal(t, "fallback", getEnv("FASTPAYMENT_UNSET_KEY", "fallback"))
	assert.Equal(t, 42, getEnvInt("FASTPAYMENT_UNSET_KEY", 42))
}

func TestLoad_ElasticsearchDurations(t *testing.T) {
	t.Setenv("ELASTICSEARCH_TIMEOUT", "5s")
	t.Setenv("ELASTICSEARCH_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Elasticsearch.Timeout)
	assert.False(t, cfg.Elasticsearch.Enabled)

	t.Setenv("ELASTICSEARCH_TIMEOUT", "soon")
	assert.Equal(t, 30*time.Second, Load().Elasticsearch.Timeout)
}

func TestValidate_JWTSecretInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "short-secret"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = strings.Repeat("k", 48)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_DebugAllowsDevSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("JWT_SECRET", "")

	assert.NoError(t, Load().Validate())
}
