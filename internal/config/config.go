// Package config loads all runtime configuration from environment
// variables. Everything here is read once at startup and never mutated.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/arko007/chexray-api/internal/conditions"
)

// Config holds all settings for the analysis service.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Checkpoint artifact and its metadata sidecar.
	ModelPath    string `envconfig:"MODEL_PATH" default:"models/chexpert.onnx"`
	MetadataPath string `envconfig:"METADATA_PATH" default:"models/chexpert_metadata.json"`

	// Reported by the health endpoint; the ONNX runtime build decides the
	// actual execution provider.
	InferenceDevice string `envconfig:"INFERENCE_DEVICE" default:"cpu"`

	// Number of pooled inference sessions, i.e. max concurrent forward passes.
	SessionPoolSize int `envconfig:"SESSION_POOL_SIZE" default:"4"`

	GroqAPIKey string        `envconfig:"GROQ_API_KEY" required:"true"`
	GroqModel  string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	MaxImageBytes int64 `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`

	// Decision cutoffs used to derive boolean flags, as
	// "Name=0.5,Other Name=0.7". Flags only; probabilities are never altered.
	ConditionThresholds string `envconfig:"CONDITION_THRESHOLDS" default:"Cardiomegaly=0.5,Edema=0.5,Consolidation=0.5,Atelectasis=0.5,Pleural Effusion=0.5"`

	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	thresholds map[string]float64
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	thresholds, err := parseThresholds(cfg.ConditionThresholds)
	if err != nil {
		return nil, err
	}
	cfg.thresholds = thresholds

	return &cfg, nil
}

// Thresholds returns the parsed condition threshold map. Read-only after
// Load.
func (c *Config) Thresholds() map[string]float64 {
	return c.thresholds
}

func parseThresholds(raw string) (map[string]float64, error) {
	thresholds := make(map[string]float64)
	if strings.TrimSpace(raw) == "" {
		return thresholds, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid threshold entry %q, want Name=value", pair)
		}
		name = strings.TrimSpace(name)
		if !conditions.Known(name) {
			return nil, fmt.Errorf("threshold for unknown condition %q", name)
		}
		cutoff, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value for %q: %w", name, err)
		}
		if cutoff < 0 || cutoff > 1 {
			return nil, fmt.Errorf("threshold for %q out of range [0,1]: %g", name, cutoff)
		}
		thresholds[name] = cutoff
	}
	return thresholds, nil
}
