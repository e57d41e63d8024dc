package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LedgerConfig holds the identity contract and RPC endpoints
type LedgerConfig struct {
	ContractAddress string        `mapstructure:"contract_address"`
	RPCURL          string        `mapstructure:"rpc_url"`
	WebSocketURL    string        `mapstructure:"websocket_url"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
}

// Validate checks the fields readiness depends on. A failure here is fatal to
// readiness and cannot be repaired without reconstruction.
func (c *LedgerConfig) Validate() error {
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("ledger.contract_address %q is not a valid address", c.ContractAddress)
	}
	if c.RPCURL == "" && c.WebSocketURL == "" {
		return errors.New("ledger.rpc_url or ledger.websocket_url is required")
	}
	return nil
}

// ValidateSubscriber extends Validate for processes that subscribe to ledger
// events. Log subscriptions need a websocket endpoint; an rpc_url alone can
// serve one-shot calls but never a live feed.
func (c *LedgerConfig) ValidateSubscriber() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.WebSocketURL == "" {
		return errors.New("ledger.websocket_url is required for event subscription")
	}
	return nil
}

// ScannerConfig bounds the full-sync probing loop. Both knobs are explicit
// configuration so tests can shrink them.
type ScannerConfig struct {
	MaxConsecutiveMisses int           `mapstructure:"max_consecutive_misses"`
	ProbeTimeout         time.Duration `mapstructure:"probe_timeout"`
	RepairConcurrency    int           `mapstructure:"repair_concurrency"`
}

// RetryConfig bounds the reconciler's transient-write retries
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// NATSConfig holds the outcome publisher configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int      `mapstructure:"idle_timeout"`  // in seconds
	APIKeys      []string `mapstructure:"api_keys"`
}

// ReconcilerConfig holds configuration for the reconciler daemon
type ReconcilerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Ledger     LedgerConfig   `mapstructure:"ledger"`
	Scanner    ScannerConfig  `mapstructure:"scanner"`
	Retry      RetryConfig    `mapstructure:"retry"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Server     ServerConfig   `mapstructure:"server"`
}

// FullSyncConfig holds configuration for the one-shot full-sync program
type FullSyncConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Ledger     LedgerConfig   `mapstructure:"ledger"`
	Scanner    ScannerConfig  `mapstructure:"scanner"`
	Retry      RetryConfig    `mapstructure:"retry"`
}

// LoadReconcilerConfig loads configuration for the reconciler daemon
func LoadReconcilerConfig(configFile string, envPath string) (*ReconcilerConfig, error) {
	v := configureViper("reconciler", configFile, envPath)
	setCommonDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "RECONCILIATION_OUTCOMES")

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var cfg ReconcilerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFullSyncConfig loads configuration for the full-sync program
func LoadFullSyncConfig(configFile string, envPath string) (*FullSyncConfig, error) {
	v := configureViper("full-sync", configFile, envPath)
	setCommonDefaults(v)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var cfg FullSyncConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}

	return &cfg, nil
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ledger.call_timeout", "10s")
	v.SetDefault("scanner.max_consecutive_misses", 5)
	v.SetDefault("scanner.probe_timeout", "10s")
	v.SetDefault("scanner.repair_concurrency", 4)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "30s")
}

func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("REP_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// This is required for viper to map env vars to config struct fields when no config file exists.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ledger
		"ledger.contract_address",
		"ledger.rpc_url",
		"ledger.websocket_url",
		"ledger.call_timeout",
		// Scanner
		"scanner.max_consecutive_misses",
		"scanner.probe_timeout",
		"scanner.repair_concurrency",
		// Retry
		"retry.max_attempts",
		"retry.initial_interval",
		"retry.max_interval",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
