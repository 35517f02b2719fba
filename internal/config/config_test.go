package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout.Duration())
	assert.True(t, cfg.Bell)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	path := writeFile(t, `
base_url: http://file:5000
user_id: "13"
peer_id: "14"
peer_name: Bob
timeout: 3
serialize_sends: true
logging:
  level: debug
`)

	cfg := Default()
	require.NoError(t, cfg.ApplyFile(path))
	assert.Equal(t, "http://file:5000", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout.Duration())
	assert.True(t, cfg.SerializeSends)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		"CHAT_BASE_URL": "http://env:5000",
		"CHAT_PEER_ID":  "15",
		"CHAT_TIMEOUT":  "250ms",
		"CHAT_BELL":     "false",
	})))
	assert.Equal(t, "http://env:5000", cfg.BaseURL)
	assert.Equal(t, "15", cfg.PeerID)
	assert.Equal(t, "13", cfg.UserID)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout.Duration())
	assert.False(t, cfg.Bell)

	fs := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--base-url", "http://flag:5000", "--timeout", "2s", "--serialize-sends=false", "--log-file", "/tmp/chat.log"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "http://flag:5000", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Duration())
	assert.False(t, cfg.SerializeSends)
	assert.Equal(t, "/tmp/chat.log", cfg.Logging.File)
	assert.Equal(t, "Bob", cfg.PeerName, "untouched by flags")
	assert.Equal(t, "15", cfg.PeerID, "unset flags do not override")
}

func TestNoBellFlag(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--no-bell"}))
	require.NoError(t, cfg.ApplyFlags(fs))
	assert.False(t, cfg.Bell)
}

func TestBadValues(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(envMap(map[string]string{"CHAT_TIMEOUT": "soon"})))
	assert.Error(t, cfg.ApplyEnv(envMap(map[string]string{"CHAT_SERIALIZE_SENDS": "maybe"})))
	assert.Error(t, cfg.ApplyFile(writeFile(t, "timeout: [1, 2]\n")))
	assert.Error(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.EqualError(t, cfg.Validate(), "config: missing user id, peer id")

	cfg.UserID, cfg.PeerID = "13", "13"
	assert.Error(t, cfg.Validate())

	cfg.PeerID = "14"
	assert.NoError(t, cfg.Validate())

	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHAT_USER_ID", "13")
	t.Setenv("CHAT_PEER_ID", "14")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "13", cfg.UserID)
	assert.Equal(t, "14", cfg.PeerID)
	assert.NoError(t, cfg.Validate())
}
