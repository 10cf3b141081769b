package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seopilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values overlay defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 9090
license:
  server_url: https://license.example.com
  secret_key: s3cret
  site_url: https://shop.example.com
  check_timeout: 7s
auth:
  session_secret: `+testSecret+`
  users:
    - username: editor
      password_hash: $2a$10$abc
      capabilities: [manage_options]
content:
  custom_post_types: [book]
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "https://license.example.com", cfg.License.ServerURL)
		assert.Equal(t, 7*time.Second, cfg.License.CheckTimeout)
		assert.Equal(t, LicenseActivateTimeout, cfg.License.ActivateTimeout)
		assert.Equal(t, 24*time.Hour, cfg.License.CacheTTL)
		assert.Equal(t, []string{"book"}, cfg.Content.CustomPostTypes)
		require.Len(t, cfg.Auth.Users, 1)
		assert.Equal(t, "editor", cfg.Auth.Users[0].Username)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  port: 9090\nauth:\n  session_secret: "+testSecret+"\n")
		t.Setenv("SEOPILOT_SERVER_PORT", "7070")
		t.Setenv("SEOPILOT_STORE_DRIVER", "redis")
		t.Setenv("SEOPILOT_STORE_REDIS_ADDR", "localhost:6379")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, StoreDriverRedis, cfg.Store.Driver)
		assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"short session secret", "auth:\n  session_secret: short\n"},
			{"bad port", "server:\n  port: 70000\nauth:\n  session_secret: " + testSecret + "\n"},
			{"unknown driver", "store:\n  driver: mongo\nauth:\n  session_secret: " + testSecret + "\n"},
			{"redis without addr", "store:\n  driver: redis\nauth:\n  session_secret: " + testSecret + "\n"},
			{"site url without host", "license:\n  site_url: not-a-url\nauth:\n  session_secret: " + testSecret + "\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(writeConfigFile(t, tt.body))
				assert.Error(t, err)
			})
		}
	})
}

func TestAllUsers(t *testing.T) {
	cfg := Default()
	cfg.Auth.Users = []UserConfig{{Username: "a", PasswordHash: "h"}}
	cfg.Auth.AdminUsername = "root"
	cfg.Auth.AdminPassword = "$2a$10$hash"

	users := cfg.AllUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "root", users[1].Username)
	assert.Equal(t, []string{CapabilityManageOptions}, users[1].Capabilities)
	assert.Len(t, cfg.Auth.Users, 1, "AllUsers must not mutate the configured slice")
}
