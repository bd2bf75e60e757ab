package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "https://gbfs.velobixi.com/gbfs"
	defaultLanguage       = "en"
	defaultDataDir        = "data"
	defaultOutputDir      = "output"
	defaultRequestTimeout = 10 * time.Second
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultMapName        = "BIXI_Analysis_Map"
	defaultMapClasses     = 5
)

// Config holds runtime configuration for the watcher job.
type Config struct {
	GBFSBaseURL    string        `yaml:"gbfs_base_url" validate:"required,url"`
	Language       string        `yaml:"language" validate:"required,excludesall=/"`
	DataDir        string        `yaml:"data_dir" validate:"required"`
	OutputDir      string        `yaml:"output_dir" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	ArchiveRaw     bool          `yaml:"archive_raw_feeds"`
	DatabaseURL    string        `yaml:"database_url"`
	OpenAIAPIKey   string        `yaml:"-"`
	OpenAIModel    string        `yaml:"openai_model" validate:"required"`
	OpenAIBaseURL  string        `yaml:"openai_base_url" validate:"omitempty,url"`
	MapName        string        `yaml:"map_name" validate:"required,excludesall=/"`
	MapClasses     int           `yaml:"map_classes" validate:"gte=2,lte=9"`
	DryRun         bool          `yaml:"dry_run"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		GBFSBaseURL:    defaultBaseURL,
		Language:       defaultLanguage,
		DataDir:        defaultDataDir,
		OutputDir:      defaultOutputDir,
		RequestTimeout: defaultRequestTimeout,
		ArchiveRaw:     true,
		OpenAIModel:    defaultOpenAIModel,
		MapName:        defaultMapName,
		MapClasses:     defaultMapClasses,
	}
}

// Load reads configuration from an optional YAML file (WATCHER_CONFIG_FILE)
// and environment variables (optionally .env). Environment wins over the file.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Defaults()

	if path := env("WATCHER_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GenAIEnabled reports whether an API key is available.
func (c Config) GenAIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// StorageEnabled reports whether snapshots should be written to Postgres.
func (c Config) StorageEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := env("GBFS_BASE_URL"); v != "" {
		c.GBFSBaseURL = strings.TrimRight(v, "/")
	}
	if v := env("GBFS_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := env("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := env("OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}

	if v := env("WATCHER_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}

	if v := env("ARCHIVE_RAW_FEEDS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ARCHIVE_RAW_FEEDS: %w", err)
		}
		c.ArchiveRaw = b
	}

	if v := env("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}

	c.OpenAIAPIKey = env("OPENAI_API_KEY")
	if v := env("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
	if v := env("OPENAI_BASE_URL"); v != "" {
		c.OpenAIBaseURL = v
	}

	if v := env("MAP_NAME"); v != "" {
		c.MapName = v
	}
	if v := env("MAP_CLASSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAP_CLASSES: %w", err)
		}
		c.MapClasses = n
	}

	if v := env("DRY_RUN"); v != "" {
		c.DryRun = v == "1" || strings.EqualFold(v, "true")
	}

	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
