package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SCRAPER_MAX_PAGES.
const EnvPrefix = "SCRAPER"

// Config holds scraper configuration.
type Config struct {
	BaseURL          string        `mapstructure:"base_url"`
	MaxPages         int           `mapstructure:"max_pages"`
	Delay            time.Duration `mapstructure:"delay"`
	RandomDelay      time.Duration `mapstructure:"random_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax  time.Duration `mapstructure:"retry_backoff_max"`
	VisitedCacheSize int           `mapstructure:"visited_cache_size"`
	CSVFile          string        `mapstructure:"csv_file"`
	JSONFile         string        `mapstructure:"json_file"`
	SQLiteFile       string        `mapstructure:"sqlite_file"`
	SampleCSVFile    string        `mapstructure:"sample_csv_file"`
	SampleJSONFile   string        `mapstructure:"sample_json_file"`
	MetricsFile      string        `mapstructure:"metrics_file"`
	UserAgent        string        `mapstructure:"user_agent"`
	Verbose          bool          `mapstructure:"verbose"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots_txt"`
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://books.toscrape.com/",
		MaxPages:         50,
		Delay:            time.Second,
		RandomDelay:      0,
		Timeout:          10 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     200 * time.Millisecond,
		RetryBackoffMax:  2 * time.Second,
		VisitedCacheSize: 1024,
		CSVFile:          "output/books_data.csv",
		JSONFile:         "output/books_data.json",
		SQLiteFile:       "",
		SampleCSVFile:    "output/sample_books.csv",
		SampleJSONFile:   "output/sample_books.json",
		MetricsFile:      "",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Load reads configuration from path (optional) and SCRAPER_* environment
// variables on top of DefaultConfig.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	} else {
		v.SetConfigName("scraper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("max_pages", d.MaxPages)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("random_delay", d.RandomDelay)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_backoff", d.RetryBackoff)
	v.SetDefault("retry_backoff_max", d.RetryBackoffMax)
	v.SetDefault("visited_cache_size", d.VisitedCacheSize)
	v.SetDefault("csv_file", d.CSVFile)
	v.SetDefault("json_file", d.JSONFile)
	v.SetDefault("sqlite_file", d.SQLiteFile)
	v.SetDefault("sample_csv_file", d.SampleCSVFile)
	v.SetDefault("sample_json_file", d.SampleJSONFile)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("respect_robots_txt", d.RespectRobotsTxt)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Delay <= 0 {
		return fmt.Errorf("delay must be positive")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	// Evicting a visited page would let a long cycle go unnoticed.
	if c.VisitedCacheSize < c.MaxPages {
		return fmt.Errorf("visited cache size (%d) must be at least max pages (%d)", c.VisitedCacheSize, c.MaxPages)
	}
	if c.CSVFile == "" && c.JSONFile == "" && c.SQLiteFile == "" {
		return fmt.Errorf("at least one output file (csv, json, or sqlite) is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
