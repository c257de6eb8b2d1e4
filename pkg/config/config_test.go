package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 3, cfg.Lifecycle.MaxResyncAttempts)
	assert.Equal(t, "SHORT_COURSE", cfg.Lifecycle.DefaultProgramTier)
	assert.Equal(t, 5*time.Minute, cfg.Lifecycle.SummaryCacheTTL)
	assert.True(t, cfg.Admissions.RequireCompliantDossier)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
	assert.Equal(t, 72*time.Hour, cfg.Exports.Retention)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("LIFECYCLE_MAX_RESYNC_ATTEMPTS", 0)
	v.Set("LIFECYCLE_DEFAULT_PROGRAM_TIER", " diploma ")
	v.Set("LIFECYCLE_SUMMARY_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 3, cfg.Lifecycle.MaxResyncAttempts)
	assert.Equal(t, "DIPLOMA", cfg.Lifecycle.DefaultProgramTier)
	assert.Equal(t, 5*time.Minute, cfg.Lifecycle.SummaryCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
