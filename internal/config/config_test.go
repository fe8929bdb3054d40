package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	is := is.New(t)

	cfg, err := FromEnv(envMap(nil))
	is.NoErr(err)

	is.Equal(cfg.Server.Port, DefaultPort)
	is.Equal(cfg.Server.Host, DefaultHost)
	is.Equal(cfg.Server.Addr(), "0.0.0.0:8000")
	is.Equal(cfg.Bey.APIURL, DefaultBeyAPIURL)
	is.Equal(cfg.Agent.Name, DefaultAgentName)
	is.Equal(cfg.Log.Level, "info")
	is.Equal(cfg.Log.Format, "json")
	is.True(!cfg.HasCredentials()) // nothing set
}

func TestFromEnv_Values(t *testing.T) {
	is := is.New(t)

	cfg, err := FromEnv(envMap(map[string]string{
		"LIVEKIT_URL":        "wss://demo.livekit.cloud",
		"LIVEKIT_API_KEY":    "key",
		"LIVEKIT_API_SECRET": "secret",
		"TOKEN_SERVER_PORT":  "8011",
		"BEY_API_KEY":        "bey",
		"LK_LOG_FORMAT":      "console",
	}))
	is.NoErr(err)

	is.Equal(cfg.LiveKit.URL, "wss://demo.livekit.cloud")
	is.Equal(cfg.Server.Port, 8011)
	is.Equal(cfg.Bey.APIKey, "bey")
	is.Equal(cfg.Log.Format, "console")
	is.True(cfg.HasCredentials())
}

func TestHasCredentials(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		secret string
		want   bool
	}{
		{"both", "k", "s", true},
		{"key only", "k", "", false},
		{"secret only", "", "s", false},
		{"neither", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{LiveKit: LiveKit{APIKey: tt.key, APISecret: tt.secret}}
			if got := cfg.HasCredentials(); got != tt.want {
				t.Errorf("HasCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromEnv_InvalidPort(t *testing.T) {
	is := is.New(t)

	for _, p := range []string{"abc", "-1", "70000"} {
		_, err := FromEnv(envMap(map[string]string{"TOKEN_SERVER_PORT": p}))
		is.True(err != nil) // port must be numeric and in range
	}
}

func TestLoadDotEnv(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	is.NoErr(os.WriteFile(path, []byte("BP_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BP_TEST_DOTENV_VALUE") })

	is.NoErr(LoadDotEnv(path))
	is.Equal(os.Getenv("BP_TEST_DOTENV_VALUE"), "from-file")

	is.NoErr(LoadDotEnv(filepath.Join(dir, "missing.env"))) // missing files are ignored
}
