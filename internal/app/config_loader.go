package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/destream-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.destream")
		v.AddConfigPath("/etc/destream")
	}

	// DESTREAM_AUTH_PASSWORD etc.
	v.SetEnvPrefix("DESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes AutomaticEnv visible to Unmarshal for keys absent from the file
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"auth.username",
		"auth.password",
		"auth.identity_provider_host",
		"browser.headless",
		"browser.exec_path",
		"browser.keep_session",
		"download.output_dir",
		"download.ffmpeg_binary",
		"session.cache_path",
		"history.database_path",
		"logging.level",
		"logging.logs_dir",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Browser.UserDataDir = expandPath(config.Browser.UserDataDir)
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Session.CachePath = expandPath(config.Session.CachePath)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *domain.Config) error {
	if config.Auth.LoginURL == "" {
		return fmt.Errorf("auth login url not configured")
	}

	if !strings.Contains(config.Auth.VideoURLTemplate, "%s") {
		return fmt.Errorf("auth video url template must contain %%s")
	}

	if config.Auth.NavigateTimeout <= 0 || config.Auth.PromptTimeout <= 0 ||
		config.Auth.StepTimeout <= 0 || config.Auth.LoginTimeout <= 0 {
		return fmt.Errorf("auth timeouts must be positive")
	}

	if config.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser launch timeout must be positive")
	}

	if config.Auth.Username != "" && config.Auth.IdentityProviderHost == "" {
		return fmt.Errorf("auth identity provider host must be set when a username is configured")
	}

	if config.Auth.ExtractAttempts < 1 {
		return fmt.Errorf("auth extract attempts must be at least 1")
	}

	if config.Auth.ExtractDelay < 0 {
		return fmt.Errorf("auth extract delay cannot be negative")
	}

	if config.Download.SecondsPerChunk <= 0 {
		return fmt.Errorf("download seconds per chunk must be positive")
	}

	if config.Download.VideoCodec == "none" && config.Download.AudioCodec == "none" {
		return fmt.Errorf("video and audio codecs cannot both be none")
	}

	if config.Download.Format == "" {
		return fmt.Errorf("download format not configured")
	}

	if config.Download.FFmpegBinary == "" {
		return fmt.Errorf("ffmpeg binary not configured")
	}

	if config.Session.CachePath == "" {
		return fmt.Errorf("session cache path not configured")
	}

	if config.Resolver.MaxRetries < 0 {
		return fmt.Errorf("resolver max retries cannot be negative")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
