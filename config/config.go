// Package config loads config.yaml with .env and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"hospitalpredict/dataset"
	"hospitalpredict/db"
	"hospitalpredict/diagnosis"
	"hospitalpredict/logger"
)

const (
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log     logger.Config `yaml:"log"`
	Dataset DatasetConfig `yaml:"dataset"`
	Model   ModelConfig   `yaml:"model"`
}

type DatasetConfig struct {
	Source      string        `yaml:"source"`
	Path        string        `yaml:"path"`
	URL         string        `yaml:"url"`
	Encoding    string        `yaml:"encoding"`
	Timeout     time.Duration `yaml:"timeout"`
	PreviewRows int           `yaml:"preview_rows"`
	Watch       bool          `yaml:"watch"`
	SQLite      struct {
		Path  string `yaml:"path"`
		Table string `yaml:"table"`
	} `yaml:"sqlite"`
}

type ModelConfig struct {
	TestSize        float64 `yaml:"test_size"`
	RandomSeed      int64   `yaml:"random_seed"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	CacheSize       int     `yaml:"cache_size"`
}

func Default() *Config {
	var cfg Config
	cfg.Http.Port = 8501
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Log = logger.DefaultConfig()

	cfg.Dataset.Source = SourceFile
	cfg.Dataset.Path = "data/hospital_data.csv"
	cfg.Dataset.Encoding = dataset.DefaultEncoding
	cfg.Dataset.Timeout = 10 * time.Second
	cfg.Dataset.PreviewRows = 5
	cfg.Dataset.Watch = true
	cfg.Dataset.SQLite.Table = "patients"

	opts := diagnosis.DefaultOptions()
	cfg.Model = ModelConfig{
		TestSize:        opts.TestSize,
		RandomSeed:      opts.RandomSeed,
		MaxDepth:        opts.MaxDepth,
		MinSamplesSplit: opts.MinSamplesSplit,
		MinSamplesLeaf:  opts.MinSamplesLeaf,
		CacheSize:       opts.CacheSize,
	}
	return &cfg
}

// Load reads path over the defaults. A missing file is not an error; the
// defaults and environment still apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HOSPITAL_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOSPITAL_HTTP_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("HOSPITAL_DATASET_PATH"); v != "" {
		c.Dataset.Path = v
		c.Dataset.Source = SourceFile
	}
	if v := os.Getenv("HOSPITAL_DATASET_URL"); v != "" {
		c.Dataset.URL = v
		c.Dataset.Source = SourceHTTP
	}
	if v := os.Getenv("HOSPITAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port < 1 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Model.TestSize <= 0 || c.Model.TestSize >= 1 {
		return fmt.Errorf("model.test_size %.3f must be in (0, 1)", c.Model.TestSize)
	}
	if c.Model.CacheSize < 0 {
		return fmt.Errorf("model.cache_size must not be negative")
	}
	if c.Model.MaxDepth < 0 {
		return fmt.Errorf("model.max_depth must not be negative")
	}
	switch c.Dataset.Source {
	case SourceFile:
		if c.Dataset.Path == "" {
			return errors.New("dataset.path is required for file source")
		}
	case SourceHTTP:
		if c.Dataset.URL == "" {
			return errors.New("dataset.url is required for http source")
		}
	case SourceSQLite:
		if c.Dataset.SQLite.Path == "" || c.Dataset.SQLite.Table == "" {
			return errors.New("dataset.sqlite.path and dataset.sqlite.table are required for sqlite source")
		}
	default:
		return fmt.Errorf("unknown dataset.source %q", c.Dataset.Source)
	}
	return nil
}

// NewSource builds the configured dataset source.
func (c DatasetConfig) NewSource() (dataset.Source, error) {
	switch c.Source {
	case SourceFile:
		return dataset.FileSource{Path: c.Path, Encoding: c.Encoding}, nil
	case SourceHTTP:
		return dataset.NewHTTPSource(c.URL, c.Encoding, c.Timeout), nil
	case SourceSQLite:
		return db.Source{Path: c.SQLite.Path, Table: c.SQLite.Table}, nil
	}
	return nil, fmt.Errorf("unknown dataset source %q", c.Source)
}

// Options maps the model section onto training options.
func (c *Config) Options() diagnosis.Options {
	return diagnosis.Options{
		TestSize:        c.Model.TestSize,
		RandomSeed:      c.Model.RandomSeed,
		MaxDepth:        c.Model.MaxDepth,
		MinSamplesSplit: c.Model.MinSamplesSplit,
		MinSamplesLeaf:  c.Model.MinSamplesLeaf,
		PreviewRows:     c.Dataset.PreviewRows,
		CacheSize:       c.Model.CacheSize,
	}
}
