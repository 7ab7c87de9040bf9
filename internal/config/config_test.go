package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LLM_PROVIDER", "OPENROUTER_API_KEYS", "LLM_API_KEYS", "LLM_MODEL", "MEMORY_BACKEND", "LLM_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 64, cfg.Server.MaxConcurrent)
	assert.Equal(t, ProviderOpenRouter, cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Keys)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "openai/gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 50, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Limits.CredentialCooldown)
	assert.Equal(t, 15*time.Second, cfg.Limits.DuplicateWindow)
	assert.Equal(t, 1000, cfg.Limits.DuplicateCapacity)
	assert.Equal(t, 20, cfg.Limits.ConversationCap)
	assert.Equal(t, 10, cfg.Limits.ConversationContext)
	assert.Equal(t, "file", cfg.Memory.Backend)
	assert.Equal(t, 120*time.Second, cfg.Voice.ListenDuration)
	assert.Equal(t, 25*time.Second, cfg.Voice.SilenceTimeout)
	assert.Equal(t, 5*time.Second, cfg.Voice.SilenceGrace)
}

func TestLoad_Keys(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEYS", " sk-1, ,sk-2 ,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"sk-1", "sk-2"}, cfg.LLM.Keys)

	t.Setenv("OPENROUTER_API_KEYS", "")
	t.Setenv("LLM_API_KEYS", "alt")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alt"}, cfg.LLM.Keys)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("LLM_PROVIDER", "ARK")
	t.Setenv("LLM_MODEL", "doubao-lite")
	t.Setenv("CREDENTIAL_COOLDOWN", "90")
	t.Setenv("DUPLICATE_WINDOW", "2s")
	t.Setenv("MEMORY_BACKEND", "sqlite")
	t.Setenv("LOG_COLOR", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ProviderArk, cfg.LLM.Provider)
	assert.Equal(t, "doubao-lite", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.Limits.CredentialCooldown)
	assert.Equal(t, 2*time.Second, cfg.Limits.DuplicateWindow)
	assert.Equal(t, "sqlite", cfg.Memory.Backend)
	assert.False(t, cfg.Log.Color)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                    "80 80",
		"LLM_PROVIDER":            "bedrock",
		"LLM_MAX_TOKENS":          "many",
		"LLM_TEMPERATURE":         "hot",
		"LLM_TIMEOUT":             "-3s",
		"DUPLICATE_CAPACITY":      "0",
		"MEMORY_BACKEND":          "redis",
		"VOICE_SILENCE_TIMEOUT":   "soon",
		"MAX_CONCURRENT_REQUESTS": "-1",
		"LOG_COLOR":               "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	raw := `
personas:
  Jak:
    prompt: "You are Jak, louder."
knowledge:
  "what is bzik": "A buddy."
exit_phrases: ["ciao"]
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	content, err := LoadContent(path)
	require.NoError(t, err)
	assert.Equal(t, "You are Jak, louder.", content.Personas["Jak"].Prompt)
	assert.Equal(t, "A buddy.", content.Knowledge["what is bzik"])
	assert.Equal(t, []string{"ciao"}, content.ExitPhrases)
}

func TestLoadContent_Errors(t *testing.T) {
	content, err := LoadContent("")
	require.NoError(t, err)
	assert.Empty(t, content.Knowledge)

	_, err = LoadContent(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("personas:\n  Zorg:\n    prompt: x\n"), 0o644))
	_, err = LoadContent(bad)
	assert.ErrorContains(t, err, "Zorg")
}
