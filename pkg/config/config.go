package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the mock Marble API server settings. Values resolve as
// flags-over-file: the yaml file seeds them, environment variables override,
// and anything still unset takes a default.
type Config struct {
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	Env       string `yaml:"env"`

	// APIKey is the key the server expects in the WLT-Api-Key header.
	// Empty accepts any non-empty key (dev only).
	APIKey string `yaml:"apiKey"`

	// CompleteAfterPolls is how many operation polls a generation stays
	// pending before completing. Zero completes on the first poll.
	CompleteAfterPolls int `yaml:"completeAfterPolls"`

	// ArtifactsDir is where generated world assets are materialized and
	// served from.
	ArtifactsDir string `yaml:"artifactsDir"`

	TracingEnabled bool    `yaml:"tracingEnabled"`
	OTLPEndpoint   string  `yaml:"otlpEndpoint"`
	OTLPInsecure   bool    `yaml:"otlpInsecure"`
	SampleRatio    float64 `yaml:"sampleRatio"`
}

// LoadConfigOptional loads filePath when given; an empty path starts from
// zero values and relies on env overrides and defaults.
func LoadConfigOptional(filePath string) (*Config, error) {
	var c Config
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("MARBLE_MOCK_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("MARBLE_MOCK_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MARBLE_MOCK_COMPLETE_AFTER_POLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CompleteAfterPolls = n
		}
	}
	if v := os.Getenv("MARBLE_MOCK_ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.CompleteAfterPolls < 0 {
		c.CompleteAfterPolls = 0
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = "./artifacts"
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
}

func (c *Config) Validate() error {
	var errs []string
	env := strings.ToLower(strings.TrimSpace(c.Env))
	dev := env == "dev"

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range", c.Port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	if strings.TrimSpace(c.APIKey) == "" && !dev {
		errs = append(errs, "apiKey is required in non-dev")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
