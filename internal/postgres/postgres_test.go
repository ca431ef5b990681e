package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigSetupDefaults(t *testing.T) {
	cfg := (&Config{Port: "not-a-port"}).Setup()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "tradier_dashboard", cfg.DBName)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.ConnTimeout)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres dbname=tradier_dashboard password=postgres sslmode=disable connect_timeout=5",
		cfg.String())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_DB_NAME", "journal")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "10")

	cfg := NewConfigFromEnv().Setup()
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "6543", cfg.Port)
	assert.Equal(t, "journal", cfg.DBName)
	assert.Equal(t, 10, cfg.MaxOpenConns)
}
