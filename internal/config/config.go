// Package config loads runtime configuration from environment variables,
// keeping the variable names the deployment scripts already use.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// DashScopeAPIKey authenticates both the realtime stream and the
	// embeddings endpoint.
	DashScopeAPIKey string `mapstructure:"dashscope_api_key"`

	StreamBaseURL string `mapstructure:"stream_base_url"`
	StreamModel   string `mapstructure:"stream_model"`
	AudioVoice    string `mapstructure:"audio_voice"`

	AudioSampleRate int `mapstructure:"audio_sample_rate"`

	QMPSocketPath       string `mapstructure:"qemu_socket_path"`
	VMDisplayResolution string `mapstructure:"vm_display_resolution"`
	ScreenshotDir       string `mapstructure:"screenshot_dir"`

	VMCHost string `mapstructure:"vmc_host"`
	VMCPort int    `mapstructure:"vmc_port"`

	MemoryDBPath      string `mapstructure:"memory_db_path"`
	EmbeddingBaseURL  string `mapstructure:"embedding_base_url"`
	EmbeddingModel    string `mapstructure:"embedding_model"`
	WorkingMemorySize int    `mapstructure:"working_memory_tokens"`

	TriggerMinSeconds int `mapstructure:"trigger_min_seconds"`
	TriggerMaxSeconds int `mapstructure:"trigger_max_seconds"`
}

var envBindings = map[string]string{
	"dashscope_api_key":     "DASHSCOPE_API_KEY",
	"stream_base_url":       "STREAM_BASE_URL",
	"stream_model":          "STREAM_MODEL",
	"audio_voice":           "AUDIO_VOICE",
	"audio_sample_rate":     "AUDIO_SAMPLE_RATE",
	"qemu_socket_path":      "QEMU_SOCKET_PATH",
	"vm_display_resolution": "VM_DISPLAY_RESOLUTION",
	"screenshot_dir":        "SCREENSHOT_DIR",
	"vmc_host":              "INOCHI2D_VMC_HOST",
	"vmc_port":              "INOCHI2D_VMC_PORT",
	"memory_db_path":        "MEMORY_DB_PATH",
	"embedding_base_url":    "EMBEDDING_BASE_URL",
	"embedding_model":       "EMBEDDING_MODEL",
	"working_memory_tokens": "WORKING_MEMORY_TOKENS",
	"trigger_min_seconds":   "TRIGGER_MIN_SECONDS",
	"trigger_max_seconds":   "TRIGGER_MAX_SECONDS",
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("stream_base_url", "wss://dashscope-intl.aliyuncs.com/api-ws/v1/realtime")
	v.SetDefault("stream_model", "qwen3-omni-flash-realtime")
	v.SetDefault("audio_voice", "Cherry")
	v.SetDefault("audio_sample_rate", 24000)
	v.SetDefault("qemu_socket_path", "/tmp/qemu-qmp.sock")
	v.SetDefault("vm_display_resolution", "1920x1080")
	v.SetDefault("screenshot_dir", "/tmp")
	v.SetDefault("vmc_host", "127.0.0.1")
	v.SetDefault("vmc_port", 39540)
	v.SetDefault("memory_db_path", "db/memories.db")
	v.SetDefault("embedding_base_url", "https://dashscope-intl.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("embedding_model", "text-embedding-v4")
	v.SetDefault("working_memory_tokens", 32000)
	v.SetDefault("trigger_min_seconds", 30)
	v.SetDefault("trigger_max_seconds", 120)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DashScopeAPIKey == "" {
		return fmt.Errorf("DASHSCOPE_API_KEY is required")
	}
	if _, _, err := c.vmResolution(); err != nil {
		return err
	}
	if c.TriggerMinSeconds <= 0 || c.TriggerMaxSeconds < c.TriggerMinSeconds {
		return fmt.Errorf("invalid trigger cadence: min=%d max=%d", c.TriggerMinSeconds, c.TriggerMaxSeconds)
	}
	return nil
}

// VMWidth and VMHeight come from the WIDTHxHEIGHT resolution string.
func (c *Config) VMWidth() int {
	width, _, _ := c.vmResolution()
	return width
}

func (c *Config) VMHeight() int {
	_, height, _ := c.vmResolution()
	return height
}

func (c *Config) vmResolution() (int, int, error) {
	parts := strings.SplitN(c.VMDisplayResolution, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid VM_DISPLAY_RESOLUTION %q", c.VMDisplayResolution)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid VM_DISPLAY_RESOLUTION %q", c.VMDisplayResolution)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid VM_DISPLAY_RESOLUTION %q", c.VMDisplayResolution)
	}
	return width, height, nil
}
