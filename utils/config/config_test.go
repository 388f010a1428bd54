package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "Huntley", cfg.AssistantName)
	assert.Equal(t, BackendAFS, cfg.HistoryBackend)
	assert.Equal(t, "chat_history.json", cfg.HistoryURL)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout)
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	cfg, err := Load([]string{"--port", "8081", "--history-backend", "bolt", "--bolt-path", "h.db"})
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, BackendBolt, cfg.HistoryBackend)
	assert.Equal(t, "h.db", cfg.BoltPath)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.True(t, cfg.HasProvider())
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huntley.yaml")
	content := "port: 9000\nhistoryBackend: redis\nproviderTimeout: 5s\nredis:\n  addr: cache:6379\nopenai:\n  apiKey: o-key\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load([]string{"--config", path, "--port", "8000"})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, BackendRedis, cfg.HistoryBackend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "huntley:chat_history", cfg.Redis.Key)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "o-key", cfg.OpenAI.APIKey)
}

func TestValidate(t *testing.T) {
	base := Config{Port: 3000, AssistantName: "Huntley", HistoryBackend: BackendAFS, HistoryURL: "h.json"}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "empty name", mutate: func(c *Config) { c.AssistantName = " " }, wantErr: true},
		{name: "afs without url", mutate: func(c *Config) { c.HistoryURL = "" }, wantErr: true},
		{name: "redis without key", mutate: func(c *Config) { c.HistoryBackend = BackendRedis; c.Redis.Addr = "x:1" }, wantErr: true},
		{name: "bolt without path", mutate: func(c *Config) { c.HistoryBackend = BackendBolt }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.HistoryBackend = "s3" }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
