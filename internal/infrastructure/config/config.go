// Package config loads process configuration: defaults, optional
// config.yaml, then BRANDLENS_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Actors    ActorsConfig    `mapstructure:"actors"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// StoreConfig is the MongoDB connection configuration.
type StoreConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// LLMConfig configures the model provider. A missing API key is fatal on
// first use, not at startup.
type LLMConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// ActorsConfig names the upstream scrape actors and carries the API token.
type ActorsConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Token        string `mapstructure:"token"`
	Profile      string `mapstructure:"profile"`
	Posts        string `mapstructure:"posts"`
	Reels        string `mapstructure:"reels"`
	HashtagPosts string `mapstructure:"hashtag_posts"`
	PostDetail   string `mapstructure:"post_detail"`
}

// SchedulerConfig toggles the background jobs.
type SchedulerConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	HomeHashtags []string `mapstructure:"home_hashtags"`
}

// LogConfig is the log output configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration: defaults, then ./config.yaml if present, then
// environment variables with the BRANDLENS prefix.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BRANDLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "brandlens")

	// Empty defaults keep secret keys visible to env override.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_output_tokens", 8192)

	v.SetDefault("actors.base_url", "https://api.apify.com")
	v.SetDefault("actors.token", "")
	v.SetDefault("actors.profile", "scrape~profile")
	v.SetDefault("actors.posts", "scrape~user-posts")
	v.SetDefault("actors.reels", "scrape~user-reels")
	v.SetDefault("actors.hashtag_posts", "scrape~hashtag-posts")
	v.SetDefault("actors.post_detail", "scrape~post-detail")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.home_hashtags", []string{"skincare", "fitness", "streetwear"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
