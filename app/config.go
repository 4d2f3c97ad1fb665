package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. STAKELEDGER_API_PORT
const EnvPrefix = "STAKELEDGER"

// Supported store backends
const (
	BackendMemDB     = "memdb"
	BackendGoLevelDB = "goleveldb"
)

// Config holds daemon configuration loaded from flags, env, or config file.
type Config struct {
	Home            string
	DBBackend       string
	LogLevel        string
	ChainID         string
	Authority       string
	GenesisFile     string
	CheckInvariants bool

	API APIConfig
}

// APIConfig holds the HTTP surface settings
type APIConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	DisableRateLimit  bool
	RequestsPerSecond int
	Burst             int
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Home:            DefaultNodeHome,
		DBBackend:       BackendGoLevelDB,
		LogLevel:        "info",
		ChainID:         Name,
		CheckInvariants: true,
		API: APIConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			RequestsPerSecond: 100,
			Burst:             200,
		},
	}
}

// LoadConfig merges config file, environment variables, and flags into Config.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", def.Home)
	v.SetDefault("db-backend", def.DBBackend)
	v.SetDefault("log-level", def.LogLevel)
	v.SetDefault("chain-id", def.ChainID)
	v.SetDefault("authority", "")
	v.SetDefault("genesis", "")
	v.SetDefault("check-invariants", def.CheckInvariants)
	v.SetDefault("api.host", def.API.Host)
	v.SetDefault("api.port", def.API.Port)
	v.SetDefault("api.read-timeout", def.API.ReadTimeout)
	v.SetDefault("api.write-timeout", def.API.WriteTimeout)
	v.SetDefault("api.disable-rate-limit", false)
	v.SetDefault("api.requests-per-second", def.API.RequestsPerSecond)
	v.SetDefault("api.burst", def.API.Burst)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(v.GetString("home"))
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Home:            v.GetString("home"),
		DBBackend:       strings.ToLower(v.GetString("db-backend")),
		LogLevel:        v.GetString("log-level"),
		ChainID:         v.GetString("chain-id"),
		Authority:       v.GetString("authority"),
		GenesisFile:     v.GetString("genesis"),
		CheckInvariants: v.GetBool("check-invariants"),
		API: APIConfig{
			Host:              v.GetString("api.host"),
			Port:              v.GetInt("api.port"),
			ReadTimeout:       v.GetDuration("api.read-timeout"),
			WriteTimeout:      v.GetDuration("api.write-timeout"),
			DisableRateLimit:  v.GetBool("api.disable-rate-limit"),
			RequestsPerSecond: v.GetInt("api.requests-per-second"),
			Burst:             v.GetInt("api.burst"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings that cannot be defaulted
func (c Config) Validate() error {
	switch c.DBBackend {
	case BackendMemDB, BackendGoLevelDB:
	default:
		return fmt.Errorf("unsupported db backend %q", c.DBBackend)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	return nil
}

// NewLogger builds the root logger at the configured level
func (c Config) NewLogger() (log.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return log.NewLogger(os.Stderr, log.LevelOption(level)), nil
}

// OpenDB opens the configured store backend under Home/data
func (c Config) OpenDB() (dbm.DB, error) {
	if c.DBBackend == BackendMemDB {
		return dbm.NewMemDB(), nil
	}
	dataDir := filepath.Join(c.Home, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return dbm.NewDB(Name, dbm.GoLevelDBBackend, dataDir)
}
