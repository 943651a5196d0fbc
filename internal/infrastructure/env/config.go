package env

import (
	"errors"
	"fmt"
	"strings"

	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/llm/openaicompat"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const placeholderAPIKey = "dummy-key"

type Config struct {
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	Model        string  `mapstructure:"model"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt"`

	EnableThinking    bool         `mapstructure:"enable_thinking"`
	EnableSearch      bool         `mapstructure:"enable_search"`
	IncrementalOutput bool         `mapstructure:"incremental_output"`
	Search            SearchConfig `mapstructure:"search"`
	// Extra is sent as-is unless a dedicated option sets the same key.
	Extra map[string]any `mapstructure:"extra"`

	Log  LogConfig  `mapstructure:"log"`
	HTTP HTTPConfig `mapstructure:"http"`
}

type SearchConfig struct {
	Forced    bool   `mapstructure:"forced"`
	Extension bool   `mapstructure:"extension"`
	Strategy  string `mapstructure:"strategy"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", placeholderAPIKey)
	v.SetDefault("base_url", openaicompat.DefaultBaseURL)
	v.SetDefault("model", "qwen-plus")
	v.SetDefault("temperature", 0.5)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("system_prompt", "")
	v.SetDefault("enable_thinking", false)
	v.SetDefault("enable_search", false)
	v.SetDefault("incremental_output", true)
	v.SetDefault("search.forced", false)
	v.SetDefault("search.extension", false)
	v.SetDefault("search.strategy", "turbo")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("http.addr", ":8080")
}

// Load reads chat.yaml (optional), the environment and flags, in increasing
// order of precedence. API_KEY and the other keys are read unprefixed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("chat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(flagKey(f.Name), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = placeholderAPIKey
	}
	return &cfg, nil
}

// flagKey maps "log-level" to "log.level" and "enable-search" to
// "enable_search".
func flagKey(name string) string {
	key := strings.ReplaceAll(name, "-", "_")
	for _, section := range []string{"log", "http", "search"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

func (c *Config) ChatOptions() entity.ChatOptions {
	b := entity.NewOptionsBuilder().
		Model(c.Model).
		Temperature(c.Temperature).
		MaxTokens(c.MaxTokens)
	if len(c.Extra) > 0 {
		b.ExtraBody(c.Extra)
	}
	if c.EnableThinking {
		b.EnableThinking(true).IncrementalOutput(c.IncrementalOutput)
	}
	if c.EnableSearch {
		b.EnableSearch(true).SearchOptions(entity.SearchOptions{
			ForcedSearch:          c.Search.Forced,
			EnableSearchExtension: c.Search.Extension,
			SearchStrategy:        c.Search.Strategy,
		})
	}
	return b.Build()
}
