package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// EnvConfigPath names the environment variable pointing at the config file
const EnvConfigPath = "VORLESER_CONFIG"

// Config holds the complete application configuration
type Config struct {
	General  GeneralConfig  `toml:"general" yaml:"general"`
	TTS      TTSConfig      `toml:"tts" yaml:"tts"`
	Playback PlaybackConfig `toml:"playback" yaml:"playback"`
	History  HistoryConfig  `toml:"history" yaml:"history"`
	Settings SettingsConfig `toml:"settings" yaml:"settings"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	DataDir  string `toml:"data_dir" yaml:"data_dir"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogFile  string `toml:"log_file" yaml:"log_file"`
}

// TTSConfig selects and configures the speech engine
type TTSConfig struct {
	// Engine is one of edge, piper, mock
	Engine string      `toml:"engine" yaml:"engine"`
	Edge   EdgeConfig  `toml:"edge" yaml:"edge"`
	Piper  PiperConfig `toml:"piper" yaml:"piper"`
}

// EdgeConfig holds the read-aloud web service settings
type EdgeConfig struct {
	Endpoint     string   `toml:"endpoint" yaml:"endpoint"`
	VoicesURL    string   `toml:"voices_url" yaml:"voices_url"`
	Token        string   `toml:"token" yaml:"token"`
	OutputFormat string   `toml:"output_format" yaml:"output_format"`
	Timeout      Duration `toml:"timeout" yaml:"timeout"`
}

// PiperConfig holds the local piper settings
type PiperConfig struct {
	Command    string `toml:"command" yaml:"command"`
	ModelsDir  string `toml:"models_dir" yaml:"models_dir"`
	SampleRate int    `toml:"sample_rate" yaml:"sample_rate"`
}

// PlaybackConfig holds audio output settings
type PlaybackConfig struct {
	SeekInterval  Duration `toml:"seek_interval" yaml:"seek_interval"`
	DeleteRetries int      `toml:"delete_retries" yaml:"delete_retries"`
	DeleteBackoff Duration `toml:"delete_backoff" yaml:"delete_backoff"`
	SampleRate    int      `toml:"sample_rate" yaml:"sample_rate"`
	BufferFrames  int      `toml:"buffer_frames" yaml:"buffer_frames"`
}

// HistoryConfig holds the generation history store settings
type HistoryConfig struct {
	Enabled *bool  `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// IsEnabled reports whether history is on; unset means on
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// SettingsConfig locates the persisted UI state
type SettingsConfig struct {
	UIStatePath string `toml:"ui_state_path" yaml:"ui_state_path"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, vorerr.Newf("config file not found: %s", path).WithCode(vorerr.CodeNotFound)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, vorerr.Wrap(err, "failed to read config").WithCode(vorerr.CodeConfigError)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, vorerr.Wrap(err, "failed to parse config").WithCode(vorerr.CodeConfigError)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, vorerr.Wrap(err, "failed to parse config").WithCode(vorerr.CodeConfigError)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads the config from VORLESER_CONFIG or the default locations.
// No config file at all yields the defaults.
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}

	for _, p := range defaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

func defaultPaths() []string {
	return []string{
		"./vorleser.toml",
		"./vorleser.yaml",
		filepath.Join(homeDir(), ".config", "vorleser", "config.toml"),
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.TTS.Engine {
	case "edge", "piper", "mock":
	default:
		return vorerr.Newf("unknown tts engine: %s", c.TTS.Engine).
			WithCode(vorerr.CodeConfigError).
			WithDetail("engine", c.TTS.Engine)
	}
	if c.Playback.DeleteRetries < 1 {
		return vorerr.New("playback.delete_retries must be at least 1").WithCode(vorerr.CodeConfigError)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.DataDir == "" {
		c.General.DataDir = filepath.Join(homeDir(), ".config", "vorleser")
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFile == "" {
		c.General.LogFile = filepath.Join(c.General.DataDir, "vorleser.log")
	}

	// TTS
	if c.TTS.Engine == "" {
		c.TTS.Engine = "edge"
	}
	if c.TTS.Edge.Endpoint == "" {
		c.TTS.Edge.Endpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	}
	if c.TTS.Edge.VoicesURL == "" {
		c.TTS.Edge.VoicesURL = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"
	}
	if c.TTS.Edge.Token == "" {
		c.TTS.Edge.Token = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	}
	if c.TTS.Edge.OutputFormat == "" {
		c.TTS.Edge.OutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	}
	if c.TTS.Edge.Timeout.Duration == 0 {
		c.TTS.Edge.Timeout.Duration = 30 * time.Second
	}
	if c.TTS.Piper.Command == "" {
		c.TTS.Piper.Command = "piper"
	}
	if c.TTS.Piper.ModelsDir == "" {
		c.TTS.Piper.ModelsDir = filepath.Join(c.General.DataDir, "piper")
	}
	if c.TTS.Piper.SampleRate == 0 {
		c.TTS.Piper.SampleRate = 22050
	}

	// Playback
	if c.Playback.SeekInterval.Duration == 0 {
		c.Playback.SeekInterval.Duration = 5 * time.Second
	}
	if c.Playback.DeleteRetries == 0 {
		c.Playback.DeleteRetries = 4
	}
	if c.Playback.DeleteBackoff.Duration == 0 {
		c.Playback.DeleteBackoff.Duration = 250 * time.Millisecond
	}
	if c.Playback.SampleRate == 0 {
		c.Playback.SampleRate = 24000
	}
	if c.Playback.BufferFrames == 0 {
		c.Playback.BufferFrames = 1024
	}

	// History
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.General.DataDir, "history.db")
	}

	// Settings
	if c.Settings.UIStatePath == "" {
		c.Settings.UIStatePath = filepath.Join(c.General.DataDir, "ui_state.json")
	}
}

// expandEnvVars expands environment variables in path-like values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
	c.TTS.Piper.Command = os.ExpandEnv(c.TTS.Piper.Command)
	c.TTS.Piper.ModelsDir = os.ExpandEnv(c.TTS.Piper.ModelsDir)
	c.History.Path = os.ExpandEnv(c.History.Path)
	c.Settings.UIStatePath = os.ExpandEnv(c.Settings.UIStatePath)
}
