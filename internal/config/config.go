// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/sagelabs/sage/internal/provider"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// Config is the application configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `json:"server,omitempty"`

	// DataDir is the root of the document store. Defaults to ~/.sage/data.
	DataDir string `json:"data_dir,omitempty"`

	// DBPath is the session catalog database. Defaults to ~/.sage/sage.db.
	DBPath string `json:"db_path,omitempty"`

	// Model is the default "provider/model" string.
	Model string `json:"model,omitempty"`

	// LogLevel is debug, info, warn, error or fatal.
	LogLevel string `json:"log_level,omitempty"`

	// Provider configures API credentials per provider ID.
	Provider map[string]ProviderConfig `json:"provider,omitempty"`
}

// ProviderConfig holds per-provider settings.
type ProviderConfig struct {
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.sage/)
// 2. Working directory config
// 3. SAGE_CONFIG file
// 4. Environment variables
func Load(directory string) (*Config, error) {
	config := &Config{
		Provider: make(map[string]ProviderConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config (~/.sage/)
	globalDir := GlobalConfigDir()
	if globalDir != "" {
		loadOnce(filepath.Join(globalDir, "sage.json"), globalDir)
		loadOnce(filepath.Join(globalDir, "sage.jsonc"), globalDir)
	}

	// 2. Working directory config
	if directory != "" {
		loadOnce(filepath.Join(directory, "sage.json"), directory)
		loadOnce(filepath.Join(directory, "sage.jsonc"), directory)
	}

	// 3. SAGE_CONFIG file override
	if configPath := os.Getenv("SAGE_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 4. Environment variables (highest priority)
	applyEnvOverrides(config)

	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *Config) {
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.DBPath != "" {
		target.DBPath = source.DBPath
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	// Provider API keys
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for name, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if config.Provider == nil {
				config.Provider = make(map[string]ProviderConfig)
			}
			p := config.Provider[name]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[name] = p
			}
		}
	}

	if host := os.Getenv("SAGE_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SAGE_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}
	if dataDir := os.Getenv("SAGE_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}
	if dbPath := os.Getenv("SAGE_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}
	if model := os.Getenv("SAGE_MODEL"); model != "" {
		config.Model = model
	}
	if level := os.Getenv("SAGE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
}

// applyDefaults fills in unset fields.
func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "127.0.0.1"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 5115
	}
	if config.DataDir == "" {
		config.DataDir = filepath.Join(GlobalConfigDir(), "data")
	}
	if config.DBPath == "" {
		config.DBPath = filepath.Join(GlobalConfigDir(), "sage.db")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// ProviderSettings converts the provider section into registry settings.
func (c *Config) ProviderSettings() map[string]provider.Settings {
	settings := make(map[string]provider.Settings, len(c.Provider))
	for name, p := range c.Provider {
		settings[name] = provider.Settings{
			APIKey:    p.APIKey,
			BaseURL:   p.BaseURL,
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
		}
	}
	return settings
}

// Save saves the configuration to a file.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GlobalConfigDir returns the global config directory.
// Prefers SAGE_CONFIG_DIR, then ~/.sage.
func GlobalConfigDir() string {
	if dir := os.Getenv("SAGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ".sage"
	}
	return filepath.Join(home, ".sage")
}
