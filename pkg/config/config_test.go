package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "~/.huolto", cfg.Storage.BaseDir)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Contains(t, cfg.Redaction.SensitiveKeys, "password")
	assert.Contains(t, cfg.Redaction.SensitiveKeys, "token")
}

func TestExpandPaths(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{BaseDir: "~/.huolto"}}
	require.NoError(t, cfg.ExpandPaths())

	assert.False(t, strings.HasPrefix(cfg.Storage.BaseDir, "~"))
	assert.True(t, strings.HasSuffix(cfg.Storage.BaseDir, ".huolto"))
}

func TestExpandPaths_AbsoluteUntouched(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{BaseDir: "/var/lib/huolto"}}
	require.NoError(t, cfg.ExpandPaths())
	assert.Equal(t, "/var/lib/huolto", cfg.Storage.BaseDir)
}
