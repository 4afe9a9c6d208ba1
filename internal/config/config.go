package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Paths     Paths     `mapstructure:"paths"`
	Processor Processor `mapstructure:"processor"`
	Watermark Watermark `mapstructure:"watermark"`
	Rembg     Rembg     `mapstructure:"rembg"`
	Mirror    Mirror    `mapstructure:"mirror"`
	Events    Events    `mapstructure:"events"`
	Retry     Retry     `mapstructure:"retry"`
}

// Paths holds the input and output roots for a run.
type Paths struct {
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// Processor holds canvas and traversal parameters.
type Processor struct {
	TargetWidth    int      `mapstructure:"target_width"`
	TargetHeight   int      `mapstructure:"target_height"`
	Background     string   `mapstructure:"background"` // hex, e.g. "#ffffff"
	Extensions     []string `mapstructure:"extensions"` // lowercase, with the leading dot
	UseAIBgRemoval bool     `mapstructure:"use_ai_bg_removal"`
	Workers        int      `mapstructure:"workers"`
}

// Watermark holds the optional watermark stamp configuration.
type Watermark struct {
	Enabled  bool   `mapstructure:"enabled"`
	Text     string `mapstructure:"text"`
	FontPath string `mapstructure:"font_path"`
}

// Rembg holds the subject-extraction service parameters.
type Rembg struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Mirror holds the optional S3-compatible mirror configuration.
type Mirror struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Events holds the optional Kafka result event configuration.
type Events struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Retry defines the retry policy for event publication.
// Per-file image processing is never retried.
type Retry struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
	Backoff  float64       `mapstructure:"backoff"`
}

// BackgroundColor parses the configured hex background into an opaque color.
func (p Processor) BackgroundColor() (color.NRGBA, error) {
	c, err := colorful.Hex(strings.ToLower(p.Background))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid background color %q: %w", p.Background, err)
	}

	r, g, b := c.RGB255()

	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if c.Paths.InputDir == "" || c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.input_dir and paths.output_dir are required")
	}
	if c.Processor.TargetWidth <= 0 || c.Processor.TargetHeight <= 0 {
		return fmt.Errorf("processor.target_width and processor.target_height must be positive")
	}
	if _, err := c.Processor.BackgroundColor(); err != nil {
		return err
	}
	if len(c.Processor.Extensions) == 0 {
		return fmt.Errorf("processor.extensions cannot be empty")
	}
	if c.Watermark.Enabled && c.Watermark.FontPath == "" {
		return fmt.Errorf("watermark.font_path is required when the watermark is enabled")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("processor.target_width", 1024)
	viper.SetDefault("processor.target_height", 1024)
	viper.SetDefault("processor.background", "#ffffff")
	viper.SetDefault("processor.extensions", []string{".png", ".jpg", ".jpeg", ".webp"})
	viper.SetDefault("processor.use_ai_bg_removal", true)
	viper.SetDefault("processor.workers", 1)
	viper.SetDefault("rembg.endpoint", "http://localhost:7000/api/remove")
	viper.SetDefault("rembg.timeout", time.Minute)
	viper.SetDefault("events.topic", "images.processed")
	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", 500*time.Millisecond)
	viper.SetDefault("retry.backoff", 2.0)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"paths.input_dir":   "INPUT_DIR",
		"paths.output_dir":  "OUTPUT_DIR",
		"rembg.endpoint":    "REMBG_ENDPOINT",
		"mirror.access_key": "MINIO_ACCESS_KEY",
		"mirror.secret_key": "MINIO_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration cannot be loaded, unmarshaled, or validated.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("invalid config")
	}

	return &cfg
}
