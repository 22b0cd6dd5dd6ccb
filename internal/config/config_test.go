package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5000/api/v1", cfg.Gateway.BaseURL)
	assert.Equal(t, "/api/v1", cfg.Server.BasePath)
	assert.Equal(t, 60, cfg.OTP.CooldownSeconds)
	assert.Equal(t, 5, cfg.OTP.MaxSends)
	assert.Empty(t, cfg.Webhooks)
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("otp:\n  cooldown_seconds: 30\nwebhooks:\n  - url: http://hooks.local/x\n    events: [profile.created]\n"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.OTP.CooldownSeconds)
	assert.Equal(t, 600, cfg.OTP.TTLSeconds)
	assert.Equal(t, "127.0.0.1:5000", cfg.Server.Addr)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"profile.created"}, cfg.Webhooks[0].Events)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"relative base url": "gateway:\n  base_url: /api\n",
		"bad base path":     "server:\n  base_path: api\n",
		"zero ttl":          "auth:\n  token_ttl_minutes: 0\n",
		"log level":         "log:\n  level: loud\n",
		"webhook url":       "webhooks:\n  - events: [x]\n",
		"not yaml":          "gateway: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "launchpad.yml"), []byte("log:\n  level: debug\n"), 0o600))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}
