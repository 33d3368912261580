package config

import (
	"strings"
	"time"
)

// Config is the relay's full configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Gateway  GatewayConfig  `yaml:"gateway" mapstructure:"gateway"`
	Backend  BackendConfig  `yaml:"backend" mapstructure:"backend"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
	Firebase FirebaseConfig `yaml:"firebase" mapstructure:"firebase"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port              string        `yaml:"port" mapstructure:"port"`
	PublicBaseURL     string        `yaml:"public_base_url" mapstructure:"public_base_url"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	// RateLimit is requests per second per client IP on /payment; zero
	// disables limiting.
	RateLimit         float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst         int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	// CallbackRateLimit is a separate per-IP limit on /callback, off by default.
	CallbackRateLimit float64       `yaml:"callback_rate_limit" mapstructure:"callback_rate_limit"`
	CallbackRateBurst int           `yaml:"callback_rate_burst" mapstructure:"callback_rate_burst"`
}

type GatewayConfig struct {
	AppID        int64         `yaml:"app_id" mapstructure:"app_id"`
	Key1         string        `yaml:"key1" mapstructure:"key1"`
	Key2         string        `yaml:"key2" mapstructure:"key2"`
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint"`
	BankCode     string        `yaml:"bank_code" mapstructure:"bank_code"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryCount   int           `yaml:"retry_count" mapstructure:"retry_count"`
	RetryWait    time.Duration `yaml:"retry_wait" mapstructure:"retry_wait"`
	RetryMaxWait time.Duration `yaml:"retry_max_wait" mapstructure:"retry_max_wait"`
}

type BackendConfig struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// Secret Manager reference; when SecretID is set it takes precedence
	// over Username/Password.
	SecretProject string `yaml:"secret_project" mapstructure:"secret_project"`
	SecretID      string `yaml:"secret_id" mapstructure:"secret_id"`
	SecretVersion string `yaml:"secret_version" mapstructure:"secret_version"`
}

func (b BackendConfig) UsesSecretManager() bool {
	return strings.TrimSpace(b.SecretID) != ""
}

const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"
)

type LedgerConfig struct {
	Driver        string         `yaml:"driver" mapstructure:"driver"`
	PendingTTL    time.Duration  `yaml:"pending_ttl" mapstructure:"pending_ttl"`
	CompletedTTL  time.Duration  `yaml:"completed_ttl" mapstructure:"completed_ttl"`
	MigrationsDir string         `yaml:"migrations_dir" mapstructure:"migrations_dir"`
	Redis         RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Postgres      PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	SQLitePath    string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers" mapstructure:"brokers"`
	TopicUnfulfilled string   `yaml:"topic_unfulfilled" mapstructure:"topic_unfulfilled"`
	TopicCompleted   string   `yaml:"topic_completed" mapstructure:"topic_completed"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type FirebaseConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// CallbackURL is the address the gateway posts callbacks to.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + "/zalopay/callback"
}
