package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "MACRODASH"

// FileEnv names the variable holding an optional YAML config file path.
const FileEnv = EnvPrefix + "_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" split_words:"true"`
	Data      DataConfig      `yaml:"data" split_words:"true"`
	Charts    ChartsConfig    `yaml:"charts" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	RateLimit RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	AllowedOrigins  []string      `yaml:"allowed_origins" split_words:"true"`
}

// DataConfig locates the dataset and holds the initial selection.
type DataConfig struct {
	Path             string   `yaml:"path" split_words:"true"`
	DefaultCountries []string `yaml:"default_countries" split_words:"true"`
	DefaultIndicator string   `yaml:"default_indicator" split_words:"true"`
	DefaultYearFrom  int      `yaml:"default_year_from" split_words:"true"`
	DefaultYearTo    int      `yaml:"default_year_to" split_words:"true"`
}

// ChartsConfig contains chart description and rendering options
type ChartsConfig struct {
	FrameDuration time.Duration `yaml:"frame_duration" split_words:"true"`
	ImageWidth    int           `yaml:"image_width" split_words:"true"`
	ImageHeight   int           `yaml:"image_height" split_words:"true"`
	RaceTopN      int           `yaml:"race_top_n" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true"`
	Output   string `yaml:"output" split_words:"true"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Data: DataConfig{
			Path: "macrodata.csv",
			DefaultCountries: []string{
				"Finland",
				"Indonesia",
				"United States of America",
				"Russian Federation",
				"Bulgaria",
			},
			DefaultIndicator: "Services, value added (% of GDP)",
			DefaultYearFrom:  2010,
			DefaultYearTo:    2019,
		},
		Charts: ChartsConfig{
			FrameDuration: 800 * time.Millisecond,
			ImageWidth:    1024,
			ImageHeight:   500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   100,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// MACRODASH_CONFIG (if any), then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Data.Path == "" {
		return fmt.Errorf("data path is required")
	}
	if c.Data.DefaultYearFrom > c.Data.DefaultYearTo {
		return fmt.Errorf("default year range is reversed: %d > %d", c.Data.DefaultYearFrom, c.Data.DefaultYearTo)
	}
	if c.Charts.FrameDuration <= 0 {
		return fmt.Errorf("race frame duration must be positive")
	}
	if c.Charts.ImageWidth <= 0 || c.Charts.ImageHeight <= 0 {
		return fmt.Errorf("chart image size must be positive")
	}
	if c.Charts.RaceTopN < 0 {
		return fmt.Errorf("race top n cannot be negative")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}
