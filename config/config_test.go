package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tunefetch/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("OPEN_AI_KEY", "")

	conf, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", conf.Log.Level)
	assert.Equal(t, "pretty", conf.Log.Format)
	assert.Equal(t, "downloads", conf.Downloader.Dir)
	assert.Equal(t, 4, conf.Downloader.Concurrency)
	assert.Equal(t, "bestaudio[ext=m4a]/bestaudio/best", conf.Downloader.Format)
	assert.Equal(t, 20*time.Second, conf.Metadata.Timeout.Duration)
	assert.Equal(t, []string{"title", "artist", "album", "year"}, conf.Metadata.CompletionFields)
	assert.True(t, *conf.YouTube.Enabled)
	assert.True(t, *conf.ITunes.Enabled)
	assert.False(t, *conf.Spotify.Enabled)
	assert.False(t, *conf.OpenAI.Enabled)
	assert.Equal(t, "spotify_token.json", conf.Spotify.TokenFile)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "client-id-value")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "client-secret-value")
	t.Setenv("OPEN_AI_KEY", "sk-test-key-value")

	conf, err := config.Load(writeConfig(t, "metadata:\n  timeout: 5s\n"))
	require.NoError(t, err)

	assert.True(t, *conf.Spotify.Enabled)
	assert.True(t, *conf.OpenAI.Enabled)
	assert.Equal(t, "client-id-value", conf.Spotify.ClientID)
	assert.Equal(t, "sk-test-key-value", conf.OpenAI.APIKey)
	assert.Equal(t, 5*time.Second, conf.Metadata.Timeout.Duration)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("OPEN_AI_KEY", "")

	testCases := []struct {
		name    string
		content string
	}{
		{name: "log level", content: "log:\n  level: loud\n"},
		{name: "extract audio", content: "downloader:\n  extract_audio: flac\n"},
		{name: "completion field", content: "metadata:\n  completion_fields: [mood]\n"},
		{name: "bad duration", content: "cover:\n  timeout: soon\n"},
		{name: "spotify without credentials", content: "spotify:\n  enabled: true\n"},
		{name: "openai without key", content: "openai:\n  enabled: true\n"},
		{name: "duplicate lyrics sources", content: "lyrics:\n  sources: [genius, genius]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
