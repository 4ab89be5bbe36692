package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("SAGE_CONFIG_DIR", "")
	t.Setenv("SAGE_CONFIG", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return tmpDir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadGlobalConfig(t *testing.T) {
	home := isolateEnv(t)

	writeConfig(t, filepath.Join(home, ".sage", "sage.json"), `{
		"model": "anthropic/claude-sonnet-4-20250514",
		"log_level": "debug",
		"server": {"host": "0.0.0.0", "port": 9000},
		"provider": {
			"anthropic": {
				"api_key": "sk-ant-test123"
			}
		}
	}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test123", cfg.Provider["anthropic"].APIKey)
}

func TestLoadDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5115, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, ".sage", "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".sage", "sage.db"), cfg.DBPath)
}

func TestProjectConfigOverridesGlobal(t *testing.T) {
	home := isolateEnv(t)
	project := t.TempDir()

	writeConfig(t, filepath.Join(home, ".sage", "sage.json"), `{
		"model": "anthropic/claude-sonnet-4-20250514",
		"log_level": "warn"
	}`)
	writeConfig(t, filepath.Join(project, "sage.json"), `{
		"model": "openai/gpt-4o"
	}`)

	cfg, err := Load(project)
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestJSONCComments(t *testing.T) {
	home := isolateEnv(t)

	writeConfig(t, filepath.Join(home, ".sage", "sage.jsonc"), `{
		// Default model for all sessions
		"model": "anthropic/claude-sonnet-4-20250514",
		/* trailing commas are fine too */
		"log_level": "debug",
	}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvInterpolation(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("SAGE_TEST_KEY", "sk-from-env")

	writeConfig(t, filepath.Join(home, ".sage", "sage.json"), `{
		"provider": {
			"anthropic": {"api_key": "{env:SAGE_TEST_KEY}"}
		}
	}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Provider["anthropic"].APIKey)
}

func TestFileInterpolation(t *testing.T) {
	home := isolateEnv(t)

	keyPath := filepath.Join(home, "key.txt")
	require.NoError(t, os.WriteFile(keyPath, []byte("sk-from-file"), 0600))

	writeConfig(t, filepath.Join(home, ".sage", "sage.json"), `{
		"provider": {
			"openai": {"api_key": "{file:`+keyPath+`}"}
		}
	}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.Provider["openai"].APIKey)
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SAGE_MODEL", "openai/gpt-4o-mini")
	t.Setenv("SAGE_PORT", "8123")
	t.Setenv("SAGE_DATA_DIR", "/var/lib/sage")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "/var/lib/sage", cfg.DataDir)
	assert.Equal(t, "sk-ant-env", cfg.Provider["anthropic"].APIKey)
}

func TestConfigFileKeyWins(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	writeConfig(t, filepath.Join(home, ".sage", "sage.json"), `{
		"provider": {
			"anthropic": {"api_key": "sk-ant-file"}
		}
	}`)

	cfg, err := Load("")
	require.NoError(t, err)

	// A key set in a config file is not replaced by the environment.
	assert.Equal(t, "sk-ant-file", cfg.Provider["anthropic"].APIKey)
}

func TestSageConfigFileOverride(t *testing.T) {
	home := isolateEnv(t)

	override := filepath.Join(home, "custom.jsonc")
	writeConfig(t, override, `{"model": "anthropic/claude-opus-4-1"}`)
	t.Setenv("SAGE_CONFIG", override)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-opus-4-1", cfg.Model)
}

func TestProviderSettings(t *testing.T) {
	cfg := &Config{
		Provider: map[string]ProviderConfig{
			"anthropic": {APIKey: "k1", MaxTokens: 4096},
			"openai":    {APIKey: "k2", BaseURL: "https://proxy.example.com/v1"},
		},
	}

	settings := cfg.ProviderSettings()
	require.Len(t, settings, 2)
	assert.Equal(t, "k1", settings["anthropic"].APIKey)
	assert.Equal(t, 4096, settings["anthropic"].MaxTokens)
	assert.Equal(t, "https://proxy.example.com/v1", settings["openai"].BaseURL)
}

func TestSaveRoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "sage.json")

	cfg := &Config{Model: "anthropic/claude-sonnet-4-20250514"}
	require.NoError(t, Save(cfg, path))

	var loaded Config
	require.NoError(t, loadConfigFile(path, &loaded, filepath.Dir(path)))
	assert.Equal(t, cfg.Model, loaded.Model)
}
