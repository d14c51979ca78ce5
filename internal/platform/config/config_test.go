package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadRequiresSigningKey(t *testing.T) {
	unsetEnv(t, "CONFIG_PATH")
	unsetEnv(t, "JWT_SIGNING_KEY")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	unsetEnv(t, "CONFIG_PATH")
	unsetEnv(t, "KAFKA_BROKERS")
	t.Setenv("JWT_SIGNING_KEY", "test-signing-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "test-signing-key", cfg.Auth.JWTSigningKey)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 10000, cfg.Bus.HistorySize)
	assert.Equal(t, "sante.events", cfg.Kafka.Topic)
	assert.Contains(t, cfg.Kafka.EventTypes, "appointment.scheduled")
	assert.Equal(t, 30*time.Minute, cfg.Care.AppointmentSlot)
	assert.Equal(t, 256, cfg.Care.NotificationQueue)
	assert.Equal(t, 20, cfg.Auth.RateLimit)
	assert.Equal(t, time.Minute, cfg.Auth.RateWindow)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("auth:\n  jwt_signing_key: file-key\nbus:\n  history_size: 50\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)
	unsetEnv(t, "JWT_SIGNING_KEY")
	unsetEnv(t, "BUS_HISTORY_SIZE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Auth.JWTSigningKey)
	assert.Equal(t, 50, cfg.Bus.HistorySize)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Auth: Auth{JWTSigningKey: "k", TokenTTL: time.Hour, HashConcurrency: 1},
		Bus:  Bus{HistorySize: 10},
		Care: Care{NotificationQueue: 8},
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.Auth.JWTSigningKey = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingSigningKey)

	prod := valid
	prod.Server.Environment = "production"
	assert.Error(t, prod.Validate(), "short keys are refused in production")

	noHistory := valid
	noHistory.Bus.HistorySize = 0
	assert.Error(t, noHistory.Validate())

	noWindow := valid
	noWindow.Auth.RateLimit = 5
	noWindow.Auth.RateWindow = 0
	assert.Error(t, noWindow.Validate())

	halfAdmin := valid
	halfAdmin.Auth.AdminIdentifier = "root@sante.example"
	assert.Error(t, halfAdmin.Validate())

	noQueue := valid
	noQueue.Care.NotificationQueue = 0
	assert.Error(t, noQueue.Validate())
}
