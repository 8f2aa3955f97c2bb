// Package config loads ankivocab settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/japaniel/ankivocab/pkg/pipeline"
)

// PathEnv names the YAML file to read. Without it ./ankivocab.yaml is read if present.
const (
	PathEnv     = "ANKIVOCAB_CONFIG"
	DefaultPath = "./ankivocab.yaml"
)

// Config is the root application configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Paths     PathsConfig     `yaml:"paths"`
	Retry     RetryConfig     `yaml:"retry"`
	Log       LogConfig       `yaml:"log"`
}

// ProvidersConfig selects and authenticates the external services.
type ProvidersConfig struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"    env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `yaml:"openai_base_url"   env:"OPENAI_BASE_URL"   env-default:"https://api.openai.com/v1"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `yaml:"gemini_api_key"    env:"GEMINI_API_KEY"`
	PexelsAPIKey    string `yaml:"pexels_api_key"    env:"PEXELS_API_KEY"`
	ChatProvider    string `yaml:"chat_provider"     env:"CHAT_PROVIDER"     env-default:"openai"`
	Model           string `yaml:"model"             env:"MODEL_NAME"        env-default:"gpt-4-turbo"`
	ImageProvider   string `yaml:"image_provider"    env:"IMAGE_PROVIDER"    env-default:"gpt-image-1"`
	ImagenModel     string `yaml:"imagen_model"      env:"IMAGEN_MODEL"      env-default:"imagen-4.0-generate-001"`
	ImageSize       string `yaml:"image_size"        env:"IMAGE_SIZE"        env-default:"1792x1024"`
}

// PipelineConfig tunes batching and concurrency.
type PipelineConfig struct {
	Temperature       float64       `yaml:"temperature"         env:"TEMPERATURE"           env-default:"0.7"`
	BatchSize         int           `yaml:"batch_size"          env:"BATCH_SIZE"            env-default:"20"`
	MaxParallel       int           `yaml:"max_parallel"        env:"MAX_PARALLEL_REQUESTS" env-default:"5"`
	PromptParallelism int           `yaml:"prompt_parallelism"  env:"PROMPT_PARALLELISM"    env-default:"3"`
	ImagePause        time.Duration `yaml:"image_pause"         env:"IMAGE_PAUSE"           env-default:"3s"`
	PhotoCount        int           `yaml:"photo_count"         env:"PHOTO_COUNT"           env-default:"3"`
	AssumePriorStages bool          `yaml:"assume_prior_stages" env:"ASSUME_PRIOR_STAGES"   env-default:"true"`
}

// PathsConfig holds local file locations.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"       env:"DATA_DIR"       env-default:"./data"`
	ImageDir     string `yaml:"image_dir"      env:"IMAGE_DIR"      env-default:"./tmp/images"`
	OutputDir    string `yaml:"output_dir"     env:"OUTPUT_DIR"     env-default:"./output"`
	HistoryDB    string `yaml:"history_db"     env:"HISTORY_DB"     env-default:"./data/history.sqlite"`
	AnkiMediaDir string `yaml:"anki_media_dir" env:"ANKI_MEDIA_DIR" env-default:"$HOME/Anki/User 1/collection.media/"`
}

// RetryConfig bounds provider retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"5"`
	Initial     time.Duration `yaml:"initial"      env:"RETRY_INITIAL"      env-default:"2s"`
	Max         time.Duration `yaml:"max"          env:"RETRY_MAX"          env-default:"60s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Policy converts the retry settings.
func (r RetryConfig) Policy() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		Initial:     r.Initial,
		Max:         r.Max,
		Jitter:      llm.DefaultRetryPolicy.Jitter,
	}
}

// PipelineOptions builds pipeline options from the configuration.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Model:             c.Providers.Model,
		BatchSize:         c.Pipeline.BatchSize,
		MaxParallel:       c.Pipeline.MaxParallel,
		PromptWorkers:     c.Pipeline.PromptParallelism,
		ImagePause:        c.Pipeline.ImagePause,
		PhotoCount:        c.Pipeline.PhotoCount,
		AssumePriorStages: c.Pipeline.AssumePriorStages,
	}
}

// Load builds the configuration from the YAML file (if any), then the
// environment, then env-default tags, and validates it.
func Load() (*Config, error) {
	var cfg Config
	path, explicit := os.LookupEnv(PathEnv)
	if !explicit || path == "" {
		path, explicit = DefaultPath, false
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		// ReadConfig applies the environment on top of the file.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	case explicit || !errors.Is(statErr, fs.ErrNotExist):
		return nil, fmt.Errorf("config: %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
