// Package config resolves runtime settings from flags, the environment
// and an optional YAML file. The struct tags are interpreted by
// github.com/jessevdk/go-flags and gopkg.in/yaml.v3.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

const (
	BackendAFS   = "afs"
	BackendRedis = "redis"
	BackendBolt  = "bolt"
)

type Gemini struct {
	APIKey  string `long:"api-key" env:"API_KEY" description:"Gemini API key" yaml:"apiKey"`
	Model   string `long:"model" env:"MODEL" default:"gemini-1.5-flash" description:"Gemini model" yaml:"model"`
	BaseURL string `long:"base-url" env:"BASE_URL" description:"override Gemini endpoint" yaml:"baseURL"`
}

type OpenAI struct {
	APIKey  string `long:"api-key" env:"API_KEY" description:"OpenAI API key; enables the fallback provider" yaml:"apiKey"`
	Model   string `long:"model" env:"MODEL" default:"gpt-3.5-turbo" description:"OpenAI model" yaml:"model"`
	BaseURL string `long:"base-url" env:"BASE_URL" description:"override OpenAI endpoint" yaml:"baseURL"`
}

type Redis struct {
	Addr     string `long:"addr" env:"ADDR" default:"localhost:6379" description:"Redis address" yaml:"addr"`
	Password string `long:"password" env:"PASSWORD" description:"Redis password" yaml:"password"`
	DB       int    `long:"db" env:"DB" default:"0" description:"Redis database" yaml:"db"`
	Key      string `long:"key" env:"KEY" default:"huntley:chat_history" description:"key holding the transcript" yaml:"key"`
}

type Config struct {
	File string `short:"f" long:"config" env:"HUNTLEY_CONFIG" description:"YAML config path" yaml:"-"`

	Port            int           `long:"port" env:"PORT" default:"3000" description:"HTTP listen port" yaml:"port"`
	AssistantName   string        `long:"assistant-name" env:"ASSISTANT_NAME" default:"Huntley" description:"name the model plays" yaml:"assistantName"`
	PersonaPath     string        `long:"persona" env:"PERSONA_PATH" default:"Soham.docx" description:"persona document (.docx, .pdf or text, any afs URL)" yaml:"personaPath"`
	StaticDir       string        `long:"static" env:"STATIC_DIR" default:"public" description:"frontend directory" yaml:"staticDir"`
	HistoryBackend  string        `long:"history-backend" env:"HISTORY_BACKEND" default:"afs" choice:"afs" choice:"redis" choice:"bolt" yaml:"historyBackend"`
	HistoryURL      string        `long:"history-url" env:"HISTORY_URL" default:"chat_history.json" description:"afs URL of the transcript" yaml:"historyURL"`
	BoltPath        string        `long:"bolt-path" env:"BOLT_PATH" default:"chat_history.db" description:"bbolt database file" yaml:"boltPath"`
	ProviderTimeout time.Duration `long:"provider-timeout" env:"PROVIDER_TIMEOUT" default:"60s" description:"per provider call timeout" yaml:"providerTimeout"`
	BodyLimit       string        `long:"body-limit" env:"BODY_LIMIT" default:"1M" description:"max request body" yaml:"bodyLimit"`

	Gemini Gemini `group:"gemini" namespace:"gemini" env-namespace:"GEMINI" yaml:"gemini"`
	OpenAI OpenAI `group:"openai" namespace:"openai" env-namespace:"OPENAI" yaml:"openai"`
	Redis  Redis  `group:"redis" namespace:"redis" env-namespace:"REDIS" yaml:"redis"`
}

// Load parses args and the environment, then applies the YAML file named
// by --config on top. Keys present in the file win.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfg.File, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", cfg.File, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be expressed as flag choices.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.AssistantName) == "" {
		return errors.New("assistant name must be provided")
	}
	switch c.HistoryBackend {
	case BackendAFS:
		if strings.TrimSpace(c.HistoryURL) == "" {
			return errors.New("history url must be provided for the afs backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" || strings.TrimSpace(c.Redis.Key) == "" {
			return errors.New("redis addr and key must be provided for the redis backend")
		}
	case BackendBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			return errors.New("bolt path must be provided for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.HistoryBackend)
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("invalid provider timeout %s", c.ProviderTimeout)
	}
	return nil
}

// HasProvider reports whether at least one generation provider has a key.
func (c *Config) HasProvider() bool {
	return c.Gemini.APIKey != "" || c.OpenAI.APIKey != ""
}
