package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete clauseguard configuration tree
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Submit       SubmitConfig       `yaml:"submit" mapstructure:"submit"`
	Input        InputConfig        `yaml:"input" mapstructure:"input"`
	Audio        AudioConfig        `yaml:"audio" mapstructure:"audio"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// APIConfig describes the remote clause analysis service
type APIConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	AnalyzeTextPath  string `yaml:"analyze_text_path" mapstructure:"analyze_text_path" validate:"required,startswith=/"`
	AnalyzeFilePath  string `yaml:"analyze_file_path" mapstructure:"analyze_file_path" validate:"required,startswith=/"`
	NarrateTextPath  string `yaml:"narrate_text_path" mapstructure:"narrate_text_path" validate:"required,startswith=/"`
	NarrateFilePath  string `yaml:"narrate_file_path" mapstructure:"narrate_file_path" validate:"required,startswith=/"`
	FileField        string `yaml:"file_field" mapstructure:"file_field" validate:"required"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries" validate:"min=0,max=10"` // Extra attempts after the first
	MaxResponseBytes int64  `yaml:"max_response_bytes" mapstructure:"max_response_bytes" validate:"min=1024"`
	RiskPolicy       string `yaml:"risk_policy" mapstructure:"risk_policy" validate:"oneof=strict clamp"`
	FallbackRisk     string `yaml:"fallback_risk" mapstructure:"fallback_risk" validate:"oneof=high medium low"`
	HTTPProxy        string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy       string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy          string `yaml:"no_proxy" mapstructure:"no_proxy"`
	InsecureTLS      bool   `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// SubmitConfig bounds a single orchestrated submission
type SubmitConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// InputConfig controls how documents are loaded before upload
type InputConfig struct {
	MaxFileBytes  int64         `yaml:"max_file_bytes" mapstructure:"max_file_bytes" validate:"gt=0"`
	MaxPageBytes  int64         `yaml:"max_page_bytes" mapstructure:"max_page_bytes" validate:"gt=0"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout" validate:"gt=0"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RobotsTTL     time.Duration `yaml:"robots_ttl" mapstructure:"robots_ttl" validate:"gt=0"`
}

// AudioConfig controls narrated audio handling
type AudioConfig struct {
	PlayerCommand string `yaml:"player_command" mapstructure:"player_command"`
}

// ConcurrencyConfig controls batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=1"`
}

// RateLimitingConfig limits batch request rate per API host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"min=1"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	Color         bool `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns the built-in defaults.
// Routes match the reference clause analysis backend.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "http://localhost:8000",
			AnalyzeTextPath:  "/get_clauses",
			AnalyzeFilePath:  "/get_clauses_file",
			NarrateTextPath:  "/conversation_clauses",
			NarrateFilePath:  "/conversation_clauses_file",
			FileField:        "file",
			UserAgent:        "clauseguard/0.1 (+https://github.com/ppiankov/clauseguard)",
			MaxRetries:       2,
			MaxResponseBytes: 64 << 20,
			RiskPolicy:       "strict",
			FallbackRisk:     string(RiskMedium),
		},
		Submit: SubmitConfig{
			Timeout: 3 * time.Minute,
		},
		Input: InputConfig{
			MaxFileBytes:  10 << 20,
			MaxPageBytes:  2_000_000,
			FetchTimeout:  30 * time.Second,
			RespectRobots: true,
			RobotsTTL:     time.Hour,
		},
		Audio: AudioConfig{
			PlayerCommand: "ffplay -nodisp -autoexit -loglevel quiet -",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			Color:         true,
		},
	}
}

var configValidator = validator.New()

// Validate checks the configuration against its field constraints
func (c *Config) Validate() error {
	return configValidator.Struct(c)
}
