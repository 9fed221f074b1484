package domain

import "time"

// Config represents the application configuration
type Config struct {
	Auth         AuthConfig         `mapstructure:"auth"`
	Browser      BrowserConfig      `mapstructure:"browser"`
	Download     DownloadConfig     `mapstructure:"download"`
	Session      SessionConfig      `mapstructure:"session"`
	Resolver     ResolverConfig     `mapstructure:"resolver"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// AuthConfig drives the interactive login flow
type AuthConfig struct {
	LoginURL             string        `mapstructure:"login_url"`
	VideoURLTemplate     string        `mapstructure:"video_url_template"` // fmt template, %s is the video id
	AppRootURL           string        `mapstructure:"app_root_url"`
	IdentityProviderHost string        `mapstructure:"identity_provider_host"` // organisation sign-in host, required with credentials
	ProviderHost         string        `mapstructure:"provider_host"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	NavigateTimeout      time.Duration `mapstructure:"navigate_timeout"`
	PromptTimeout        time.Duration `mapstructure:"prompt_timeout"`
	StepTimeout          time.Duration `mapstructure:"step_timeout"`
	LoginTimeout         time.Duration `mapstructure:"login_timeout"`
	ExtractAttempts      int           `mapstructure:"extract_attempts"`
	ExtractDelay         time.Duration `mapstructure:"extract_delay"`
}

// BrowserConfig contains headless browser settings
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless"`
	ExecPath      string        `mapstructure:"exec_path"`
	UserDataDir   string        `mapstructure:"user_data_dir"`
	KeepSession   bool          `mapstructure:"keep_session"` // refresh the session before every video after the first
	LaunchTimeout time.Duration `mapstructure:"launch_timeout"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir       string  `mapstructure:"output_dir"`
	Format          string  `mapstructure:"format"`
	VideoCodec      string  `mapstructure:"video_codec"` // "none" drops the stream
	AudioCodec      string  `mapstructure:"audio_codec"` // "none" drops the stream
	Captions        bool    `mapstructure:"captions"`
	SkipExisting    bool    `mapstructure:"skip_existing"`
	NoCleanup       bool    `mapstructure:"no_cleanup"`
	SecondsPerChunk float64 `mapstructure:"seconds_per_chunk"`
	FFmpegBinary    string  `mapstructure:"ffmpeg_binary"`
	AllowElevated   bool    `mapstructure:"allow_elevated"`
}

// SessionConfig contains session cache settings
type SessionConfig struct {
	CachePath   string        `mapstructure:"cache_path"`
	MinValidity time.Duration `mapstructure:"min_validity"`
}

// ResolverConfig contains metadata API client settings
type ResolverConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	CaptionLanguage string        `mapstructure:"caption_language"`
}

// HistoryConfig contains download history settings
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // JSON event logs; empty disables them
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			LoginURL:             "https://web.microsoftstream.com/",
			VideoURLTemplate:     "https://web.microsoftstream.com/video/%s",
			AppRootURL:           "https://web.microsoftstream.com/",
			IdentityProviderHost: "",
			ProviderHost:         "microsoftstream.com",
			NavigateTimeout:      30 * time.Second,
			PromptTimeout:        3 * time.Second,
			StepTimeout:          15 * time.Second,
			LoginTimeout:         150 * time.Second,
			ExtractAttempts:      5,
			ExtractDelay:         3 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:      true,
			UserDataDir:   "$HOME/.destream/chrome",
			KeepSession:   false,
			LaunchTimeout: 30 * time.Second,
		},
		Download: DownloadConfig{
			OutputDir:       "videos",
			Format:          "mkv",
			VideoCodec:      "copy",
			AudioCodec:      "copy",
			Captions:        false,
			SkipExisting:    false,
			NoCleanup:       false,
			SecondsPerChunk: 6,
			FFmpegBinary:    "ffmpeg",
			AllowElevated:   false,
		},
		Session: SessionConfig{
			CachePath:   "$HOME/.destream/session.json",
			MinValidity: 2 * time.Minute,
		},
		Resolver: ResolverConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.destream/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
