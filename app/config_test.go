package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, BackendGoLevelDB, cfg.DBBackend)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 8080, cfg.API.Port)
	require.Equal(t, 15*time.Second, cfg.API.ReadTimeout)
	require.True(t, cfg.CheckInvariants)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ledger.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
db-backend: memdb
log-level: debug
api:
  port: 9000
  burst: 5
`), 0o600))

	t.Setenv("STAKELEDGER_API_PORT", "9100")
	t.Setenv("STAKELEDGER_AUTHORITY", "cosmos1authority")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level=warn"}))

	cfg, err := LoadConfig(file, flags)
	require.NoError(t, err)
	require.Equal(t, BackendMemDB, cfg.DBBackend)
	require.Equal(t, "warn", cfg.LogLevel) // flag over file
	require.Equal(t, 9100, cfg.API.Port)   // env over file
	require.Equal(t, 5, cfg.API.Burst)     // file over default
	require.Equal(t, "cosmos1authority", cfg.Authority)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	t.Setenv("STAKELEDGER_DB_BACKEND", "rocksdb")
	_, err = LoadConfig("", nil)
	require.ErrorContains(t, err, "unsupported db backend")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"memdb", func(c *Config) { c.DBBackend = BackendMemDB }, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad port", func(c *Config) { c.API.Port = 0 }, false},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); (err == nil) != tt.valid {
			t.Errorf("%s: Validate() = %v, want valid=%v", tt.name, err, tt.valid)
		}
	}
}

func TestConfigOpenDB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()

	db, err := cfg.OpenDB()
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())
	require.DirExists(t, filepath.Join(cfg.Home, "data", Name+".db"))

	cfg.DBBackend = BackendMemDB
	mem, err := cfg.OpenDB()
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, logger)
}
