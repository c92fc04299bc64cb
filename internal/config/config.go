package config

import (
	"path/filepath"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"` // local artifact directory
}

// XConfig holds the target platform account and login policy.
type XConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	CookiesFile       string `mapstructure:"cookies_file"`
	Identifier        string `mapstructure:"identifier"`
	Password          string `mapstructure:"password"`
	VerificationToken string `mapstructure:"verification_token"`
	LoginStrategy     string `mapstructure:"login_strategy"` // cookie | interactive | cookie_then_interactive
	DiagnosticDir     string `mapstructure:"diagnostic_dir"`
}

// BrowserConfig controls the Chrome instance.
type BrowserConfig struct {
	Headless    bool          `mapstructure:"headless"`
	UserAgent   string        `mapstructure:"user_agent"`
	ExecPath    string        `mapstructure:"exec_path"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// CollectConfig controls timeline collection.
type CollectConfig struct {
	Authors        []string      `mapstructure:"authors"`
	ScrollCount    int           `mapstructure:"scroll_count"`
	SettleInterval time.Duration `mapstructure:"settle_interval"`
	Window         time.Duration `mapstructure:"window"` // how far back from now the window starts
	Upload         bool          `mapstructure:"upload"` // upload each author artifact after writing
}

// OpenAIConfig configures the text-generation endpoint.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// EnrichConfig controls the enrichment pipeline.
type EnrichConfig struct {
	Authors           []string      `mapstructure:"authors"` // defaults to collect.authors
	Language          string        `mapstructure:"language"`
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
}

// StorageConfig configures the S3-compatible remote store.
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	BasePath      string `mapstructure:"base_path"`
	Region        string `mapstructure:"region"`
	Profile       string `mapstructure:"profile"`
	Endpoint      string `mapstructure:"endpoint"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
	AggregateFile string `mapstructure:"aggregate_file"`
	RunFile       string `mapstructure:"run_file"`
	LocalDir      string `mapstructure:"local_dir"` // used instead of a bucket when none is configured
}

// Enabled reports whether a bucket is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"` // enrichment cache and run lock
	Addr     string        `mapstructure:"addr"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ScheduleConfig controls the serve command.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Config is the top-level configuration structure.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	X        XConfig        `mapstructure:"x"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Collect  CollectConfig  `mapstructure:"collect"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "./data"
	}
	if c.X.BaseURL == "" {
		c.X.BaseURL = "https://x.com"
	}
	if c.X.CookiesFile == "" {
		c.X.CookiesFile = "cookies.json"
	}
	if c.X.LoginStrategy == "" {
		c.X.LoginStrategy = "cookie_then_interactive"
	}
	if c.X.DiagnosticDir == "" {
		c.X.DiagnosticDir = c.App.DataDir
	}
	if c.Browser.WaitTimeout == 0 {
		c.Browser.WaitTimeout = 15 * time.Second
	}
	if c.Collect.ScrollCount == 0 {
		c.Collect.ScrollCount = 5
	}
	if c.Collect.SettleInterval == 0 {
		c.Collect.SettleInterval = 4 * time.Second
	}
	if c.Collect.Window == 0 {
		c.Collect.Window = 18 * time.Hour
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if len(c.Enrich.Authors) == 0 {
		c.Enrich.Authors = c.Collect.Authors
	}
	if c.Enrich.Language == "" {
		c.Enrich.Language = "Korean"
	}
	if c.Enrich.RateLimitCooldown == 0 {
		c.Enrich.RateLimitCooldown = 20 * time.Second
	}
	if c.Enrich.MaxAttempts == 0 {
		c.Enrich.MaxAttempts = 5
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "news_data"
	}
	if c.Storage.AggregateFile == "" {
		c.Storage.AggregateFile = "summarized_posts_history.json"
	}
	if c.Storage.RunFile == "" {
		c.Storage.RunFile = "summarized_posts.json"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = filepath.Join(c.App.DataDir, "remote")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 30 * 24 * time.Hour
	}
	if c.Schedule.Interval == 0 {
		c.Schedule.Interval = 24 * time.Hour
	}
}
