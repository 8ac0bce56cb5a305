package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.False(t, cfg.JWT.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Client.Timeout)
	require.Equal(t, "http://localhost:8080", cfg.Client.MediaBaseURL)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/webp", "image/gif"}, cfg.Photos.AllowedMIMEs)
	require.Equal(t, int64(15*1024*1024), cfg.Photos.MaxFileSizeBytes)
}

func TestFromViperProductionEnablesAuth(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ENV", EnvProduction)

	cfg := fromViper(v)
	require.True(t, cfg.JWT.Enabled)

	v.Set("AUTH_ENABLED", false)
	cfg = fromViper(v)
	require.False(t, cfg.JWT.Enabled)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("", time.Minute))
	require.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	require.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	require.Nil(t, splitAndTrim(""))
	require.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
