// Package config loads service settings from YAML, .env and CHURN_* variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"churnpredict/logging"
	"churnpredict/ml"
)

type Config struct {
	Http struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		// Per-request deadline applied by the timeout middleware.
		RequestTimeout time.Duration `yaml:"request_timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log logging.Config `yaml:"log"`
	ML  struct {
		ModelType       string  `yaml:"model_type"`
		ModelPath       string  `yaml:"model_path"`
		TransformerPath string  `yaml:"transformer_path"`
		MaxTreeDepth    int     `yaml:"max_tree_depth"`
		TestRatio       float64 `yaml:"test_ratio"`
		Seed            int64   `yaml:"seed"`
		// Pinned CreditScoreCategory threshold; 0 means batch mean at fit time.
		CreditScoreThreshold float64       `yaml:"credit_score_threshold"`
		CacheSize            int           `yaml:"cache_size"`
		WatchArtifacts       bool          `yaml:"watch_artifacts"`
		ReloadDebounce       time.Duration `yaml:"reload_debounce"`
	} `yaml:"ml"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8080
	cfg.Http.ReadTimeout = 10 * time.Second
	cfg.Http.WriteTimeout = 15 * time.Second
	cfg.Http.RequestTimeout = 5 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Database.Path = "./data/churn.db"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.ML.ModelType = ml.ModelTypeDecisionTree
	cfg.ML.ModelPath = "./models/model.json"
	cfg.ML.TransformerPath = "./models/transformer.json"
	cfg.ML.MaxTreeDepth = 6
	cfg.ML.TestRatio = 0.2
	cfg.ML.Seed = 42
	cfg.ML.CacheSize = 1024
	cfg.ML.ReloadDebounce = 500 * time.Millisecond
	return cfg
}

// Load reads .env (if present), the YAML file at path (if present) and then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
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
	if v, ok := lookup("CHURN_HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHURN_HTTP_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v, ok := lookup("CHURN_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("CHURN_MODEL_PATH"); ok {
		c.ML.ModelPath = v
	}
	if v, ok := lookup("CHURN_TRANSFORMER_PATH"); ok {
		c.ML.TransformerPath = v
	}
	if v, ok := lookup("CHURN_DB_PATH"); ok {
		c.Database.Path = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		problems = append(problems, fmt.Sprintf("http.port %d out of range", c.Http.Port))
	}
	if c.Http.RequestTimeout < 0 {
		problems = append(problems, "http.request_timeout must not be negative")
	}
	if c.ML.ModelPath == "" {
		problems = append(problems, "ml.model_path is required")
	}
	if c.ML.TransformerPath == "" {
		problems = append(problems, "ml.transformer_path is required")
	}
	if c.ML.ModelType != ml.ModelTypeDecisionTree {
		problems = append(problems, fmt.Sprintf("ml.model_type %q is not supported", c.ML.ModelType))
	}
	if c.ML.TestRatio < 0 || c.ML.TestRatio >= 1 {
		problems = append(problems, "ml.test_ratio must be in [0, 1)")
	}
	if t := c.ML.CreditScoreThreshold; t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		problems = append(problems, "ml.credit_score_threshold must be a finite, non-negative number")
	}
	if c.ML.CacheSize < 0 {
		problems = append(problems, "ml.cache_size must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Artifacts returns the paths the predictor loads at startup.
func (c *Config) Artifacts() ml.ArtifactConfig {
	return ml.ArtifactConfig{
		ModelType:       c.ML.ModelType,
		ModelPath:       c.ML.ModelPath,
		TransformerPath: c.ML.TransformerPath,
	}
}

// Training returns the settings used by cmd/train_model.
func (c *Config) Training() ml.TrainingConfig {
	return ml.TrainingConfig{
		ModelType:            c.ML.ModelType,
		MaxTreeDepth:         c.ML.MaxTreeDepth,
		TestRatio:            c.ML.TestRatio,
		Seed:                 c.ML.Seed,
		CreditScoreThreshold: c.ML.CreditScoreThreshold,
	}
}
