package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/speakercut/internal/pipeline"
	"github.com/forPelevin/speakercut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/speakercut/internal/types"
)

const envPrefix = "SPEAKERCUT"

type Config struct {
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
	OutDir   string `mapstructure:"out_dir" yaml:"out_dir"`

	Clip       ClipConfig         `mapstructure:"clip" yaml:"clip"`
	Style      types.StyleOptions `mapstructure:"style" yaml:"style"`
	FFmpeg     FFmpegConfig       `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	Whisper    WhisperConfig      `mapstructure:"whisper" yaml:"whisper"`
	Faces      FacesConfig        `mapstructure:"faces" yaml:"faces"`
	OpenRouter OpenRouterConfig   `mapstructure:"openrouter" yaml:"openrouter"`
	Redis      RedisConfig        `mapstructure:"redis" yaml:"redis"`
	Cleaner    CleanerConfig      `mapstructure:"cleaner" yaml:"cleaner"`
}

type ClipConfig struct {
	Duration       float64 `mapstructure:"duration" yaml:"duration"`
	AnalysisWindow float64 `mapstructure:"analysis_window" yaml:"analysis_window"`
	BurnCaptions   bool    `mapstructure:"burn_captions" yaml:"burn_captions"`
	KeepWork       bool    `mapstructure:"keep_work" yaml:"keep_work"`
}

type FFmpegConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`
}

type WhisperConfig struct {
	Bin   string `mapstructure:"bin" yaml:"bin"`
	Model string `mapstructure:"model" yaml:"model"`
}

type FacesConfig struct {
	FrontalCascade string `mapstructure:"frontal_cascade" yaml:"frontal_cascade"`
	ProfileCascade string `mapstructure:"profile_cascade" yaml:"profile_cascade"`
}

type OpenRouterConfig struct {
	APIKey       string   `mapstructure:"api_key" yaml:"api_key"`
	Model        string   `mapstructure:"model" yaml:"model"`
	BaseURL      string   `mapstructure:"base_url" yaml:"base_url"`
	AllowedHosts []string `mapstructure:"allowed_hosts" yaml:"allowed_hosts,omitempty"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Retention   time.Duration `mapstructure:"retention" yaml:"retention"`
}

type CleanerConfig struct {
	Schedule     string        `mapstructure:"schedule" yaml:"schedule"`
	CleanupAfter time.Duration `mapstructure:"cleanup_after" yaml:"cleanup_after"`
}

// Load resolves configuration from overrides, env, an optional YAML file and
// defaults, in that order. Override keys use the dotted form ("clip.duration").
func Load(path string, overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Plain OPENROUTER_* names are what the .env files already carry.
	for key, env := range map[string]string{
		"openrouter.api_key":       "OPENROUTER_API_KEY",
		"openrouter.model":         "OPENROUTER_MODEL",
		"openrouter.base_url":      "OPENROUTER_BASE_URL",
		"openrouter.allowed_hosts": "OPENROUTER_ALLOWED_HOSTS",
	} {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, err
		}
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := types.DefaultStyle()

	v.SetDefault("cache_dir", ".cache")
	v.SetDefault("out_dir", "out")

	v.SetDefault("clip.duration", 30.0)
	v.SetDefault("clip.analysis_window", 10.0)
	v.SetDefault("clip.burn_captions", true)
	v.SetDefault("clip.keep_work", false)

	v.SetDefault("style.position", def.Position)
	v.SetDefault("style.position_percent", def.PositionPercent)
	v.SetDefault("style.speaker_colors", def.SpeakerColors)
	v.SetDefault("style.font_name", def.FontName)
	v.SetDefault("style.font_size", def.FontSize)

	v.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	v.SetDefault("ffmpeg.ffprobe_path", "ffprobe")

	v.SetDefault("whisper.bin", ".cache/bin/whisper.cpp")
	v.SetDefault("whisper.model", ".cache/models/ggml-base.bin")

	v.SetDefault("faces.frontal_cascade", ".cache/models/facefinder")
	v.SetDefault("faces.profile_cascade", "")

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", "z-ai/glm-4.5-air:free")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai")
	v.SetDefault("openrouter.allowed_hosts", []string{})

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.concurrency", 1)
	v.SetDefault("redis.retention", 24*time.Hour)

	v.SetDefault("cleaner.schedule", "@hourly")
	v.SetDefault("cleaner.cleanup_after", 2*time.Hour)
}

func findConfigFile() string {
	candidates := []string{"./speakercut.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".speakercut", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c Config) Validate() error {
	if c.Whisper.Model == "" {
		return errors.New("whisper model path is required")
	}
	if c.Clip.Duration <= 0 {
		return fmt.Errorf("clip duration must be > 0")
	}
	if c.Clip.AnalysisWindow < 0 {
		return fmt.Errorf("analysis window must be >= 0")
	}
	switch c.Style.Position {
	case "top", "middle", "bottom":
	default:
		return fmt.Errorf("caption position %q must be top, middle or bottom", c.Style.Position)
	}
	if c.Style.PositionPercent < 0 || c.Style.PositionPercent > 100 {
		return fmt.Errorf("caption position percent must be within 0..100")
	}
	if c.OpenRouter.APIKey == "" {
		return nil
	}
	return openrouter.ValidateBaseURL(c.OpenRouter.BaseURL, c.OpenRouter.AllowedHosts)
}

func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		CacheDir:          c.CacheDir,
		OutDir:            c.OutDir,
		DefaultDuration:   c.Clip.Duration,
		AnalysisWindow:    c.Clip.AnalysisWindow,
		BurnCaptions:      c.Clip.BurnCaptions,
		KeepWork:          c.Clip.KeepWork,
		Style:             c.Style,
		FFmpegPath:        c.FFmpeg.FFmpegPath,
		FFprobePath:       c.FFmpeg.FFprobePath,
		WhisperBin:        c.Whisper.Bin,
		WhisperModel:      c.Whisper.Model,
		FrontalCascade:    c.Faces.FrontalCascade,
		ProfileCascade:    c.Faces.ProfileCascade,
		OpenRouterAPIKey:  c.OpenRouter.APIKey,
		OpenRouterModel:   c.OpenRouter.Model,
		OpenRouterBaseURL: c.OpenRouter.BaseURL,
	}
}

// YAML renders the effective config with the API key masked.
func (c Config) YAML() ([]byte, error) {
	if c.OpenRouter.APIKey != "" {
		c.OpenRouter.APIKey = "***"
	}
	return yaml.Marshal(c)
}
