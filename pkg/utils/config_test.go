package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLANETHUB_DB_PATH", "/tmp/planethub-test.db")

	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8080"},
		{"TCPAddr", cfg.TCPAddr, ":7070"},
		{"APIURL", cfg.APIURL, "http://localhost:8080"},
		{"MirrorAddr", cfg.MirrorAddr, ":9000"},
		{"MirrorFile", cfg.MirrorFile, "data/planets.json"},
		{"DBPath", cfg.DBPath, "/tmp/planethub-test.db"},
		{"RemoteURL", cfg.RemoteURL, DefaultRemoteURL},
		{"RemoteTimeout", cfg.RemoteTimeout, 10 * time.Second},
		{"CacheTTL", cfg.CacheTTL, time.Duration(0)},
		{"RefreshInterval", cfg.RefreshInterval, 5 * time.Minute},
		{"Locale", cfg.Locale, "uk"},
		{"StoreKey", cfg.StoreKey, "custom_planets"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Dev", cfg.Dev, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLANETHUB_HTTP_ADDR", ":9999")
	t.Setenv("PLANETHUB_REMOTE_URL", "http://localhost:9000/api/planets")
	t.Setenv("PLANETHUB_REMOTE_TIMEOUT", "3s")
	t.Setenv("PLANETHUB_LOCALE", "en")
	t.Setenv("PLANETHUB_DEV", "true")

	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:9000/api/planets", cfg.RemoteURL)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "en", cfg.Locale)
	assert.True(t, cfg.Dev)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "store_key: my_planets\ncache_ttl: 5m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planethub.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "my_planets", cfg.StoreKey)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", true)
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger("loud", false)
	require.Error(t, err)
}
