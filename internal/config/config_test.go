package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "development", config.Server.Environment)
	assert.Equal(t, ".", config.Scripts.BaseFolder)
	assert.Equal(t, []string{".js", ".ts"}, config.Scripts.FileEndings)
	assert.Equal(t, int64(DefaultTranspileCacheBytes), config.Scripts.MaxTranspileCacheSize)
	assert.Equal(t, int64(DefaultAnalyzeCacheBytes), config.Scripts.MaxAnalyzeCacheSize)
	assert.True(t, config.Development.LiveReload, "live reload defaults on in development")
	assert.Equal(t, 100, config.Development.DebounceMillis)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	resetViper(t)
	viper.Set("server.port", 9090)
	viper.Set("server.environment", "production")
	viper.Set("scripts.base_folder", "./web")
	viper.Set("scripts.file_endings", []string{".ts", ".tsx"})
	viper.Set("scripts.max_transpile_cache_size", int64(1024))

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "production", config.Server.Environment)
	assert.Equal(t, "./web", config.Scripts.BaseFolder)
	assert.Equal(t, []string{".ts", ".tsx"}, config.Scripts.FileEndings)
	assert.Equal(t, int64(1024), config.Scripts.MaxTranspileCacheSize)
	assert.False(t, config.Development.LiveReload, "live reload defaults off outside development")
}

func TestLoad_LiveReloadExplicit(t *testing.T) {
	resetViper(t)
	viper.Set("server.environment", "production")
	viper.Set("development.live_reload", true)

	config, err := Load()
	require.NoError(t, err)

	assert.True(t, config.Development.LiveReload)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"port out of range", "server.port", 70000},
		{"negative port", "server.port", -1},
		{"bad environment", "server.environment", "sandbox"},
		{"escaping base folder", "scripts.base_folder", "../../etc"},
		{"file ending without dot", "scripts.file_endings", []string{"js"}},
		{"negative debounce", "development.debounce_millis", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
