package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // apply embedded migrations at boot
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig holds the money-movement rules.
type LedgerConfig struct {
	Currency               string `mapstructure:"currency"`
	PlatformOwnerID        string `mapstructure:"platform_owner_id"`
	MinCampaignBudget      int64  `mapstructure:"min_campaign_budget"`
	MaxMissionsPerCampaign int    `mapstructure:"max_missions_per_campaign"`
}

// PlatformOwner parses the platform wallet owner id.
func (l LedgerConfig) PlatformOwner() (uuid.UUID, error) {
	id, err := uuid.Parse(l.PlatformOwnerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing ledger.platform_owner_id: %w", err)
	}
	return id, nil
}

// GatewayConfig configures the signed payment-gateway callbacks.
type GatewayConfig struct {
	Secret            string        `mapstructure:"secret"`
	NonceTTL          time.Duration `mapstructure:"nonce_ttl"`
	MaxTimestampDrift time.Duration `mapstructure:"max_timestamp_drift"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

// NotificationsConfig configures the outbox dispatcher.
type NotificationsConfig struct {
	Stream       string        `mapstructure:"stream"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// Validate rejects configurations the ledger cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if _, err := c.Ledger.PlatformOwner(); err != nil {
		return err
	}
	if c.Ledger.MinCampaignBudget <= 0 {
		return fmt.Errorf("ledger.min_campaign_budget must be positive")
	}
	if c.Ledger.MaxMissionsPerCampaign <= 0 {
		return fmt.Errorf("ledger.max_missions_per_campaign must be positive")
	}
	if c.Notifications.BatchSize <= 0 {
		return fmt.Errorf("notifications.batch_size must be positive")
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MRL_ (Mission Rewards Ledger).
// Nested keys use underscore: MRL_DATABASE_HOST, MRL_LEDGER_CURRENCY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "mission_rewards")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "mission-rewards-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.currency", "VND")
	v.SetDefault("ledger.platform_owner_id", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("ledger.min_campaign_budget", 1000)
	v.SetDefault("ledger.max_missions_per_campaign", 100)
	v.SetDefault("gateway.secret", "")
	v.SetDefault("gateway.nonce_ttl", "120s")
	v.SetDefault("gateway.max_timestamp_drift", "60s")
	v.SetDefault("gateway.idempotency_ttl", "24h")
	v.SetDefault("notifications.stream", "notifications")
	v.SetDefault("notifications.poll_interval", "2s")
	v.SetDefault("notifications.batch_size", 50)
	v.SetDefault("notifications.max_attempts", 5)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: MRL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("MRL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
