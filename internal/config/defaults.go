package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.callback_rate_limit", 0.0)
	v.SetDefault("server.callback_rate_burst", 0)

	v.SetDefault("gateway.app_id", 0)
	v.SetDefault("gateway.key1", "")
	v.SetDefault("gateway.key2", "")
	v.SetDefault("gateway.endpoint", "")
	v.SetDefault("gateway.bank_code", "zalopayapp")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.retry_count", 2)
	v.SetDefault("gateway.retry_wait", 200*time.Millisecond)
	v.SetDefault("gateway.retry_max_wait", 2*time.Second)

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.username", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.token_ttl", time.Hour)
	v.SetDefault("backend.secret_project", "")
	v.SetDefault("backend.secret_id", "")
	v.SetDefault("backend.secret_version", "latest")

	v.SetDefault("ledger.driver", LedgerMemory)
	v.SetDefault("ledger.pending_ttl", 5*time.Minute)
	v.SetDefault("ledger.completed_ttl", 30*24*time.Hour)
	v.SetDefault("ledger.migrations_dir", "internal/ledger/migrations")
	v.SetDefault("ledger.redis.addr", "localhost:6379")
	v.SetDefault("ledger.redis.password", "")
	v.SetDefault("ledger.redis.db", 0)
	v.SetDefault("ledger.postgres.host", "localhost")
	v.SetDefault("ledger.postgres.port", 5432)
	v.SetDefault("ledger.postgres.user", "relay")
	v.SetDefault("ledger.postgres.password", "")
	v.SetDefault("ledger.postgres.dbname", "relay")
	v.SetDefault("ledger.postgres.sslmode", "disable")
	v.SetDefault("ledger.sqlite_path", "relay.db")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_unfulfilled", "payment.unfulfilled")
	v.SetDefault("kafka.topic_completed", "order.completed")

	v.SetDefault("firebase.enabled", false)
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("log.level", "info")
}

// envBindings maps keys to environment variables, preferred name first. The
// second names are the ones existing deployments already set.
var envBindings = map[string][]string{
	"server.port":               {"PORT"},
	"server.public_base_url":    {"PUBLIC_BASE_URL", "SERVER_URL"},
	"gateway.app_id":            {"GATEWAY_APP_ID", "ZALO_PAY_APP_ID"},
	"gateway.key1":              {"GATEWAY_KEY1", "ZALO_PAY_KEY1"},
	"gateway.key2":              {"GATEWAY_KEY2", "ZALO_PAY_KEY2"},
	"gateway.endpoint":          {"GATEWAY_ENDPOINT", "ZALO_PAY_ENDPOINT"},
	"backend.url":               {"BACKEND_URL", "DJANGO_SERVER_URL"},
	"backend.username":          {"BACKEND_USERNAME"},
	"backend.password":          {"BACKEND_PASSWORD"},
	"backend.secret_project":    {"BACKEND_SECRET_PROJECT", "GOOGLE_CLOUD_PROJECT"},
	"backend.secret_id":         {"BACKEND_SECRET_ID"},
	"ledger.driver":             {"LEDGER_DRIVER"},
	"ledger.migrations_dir":     {"LEDGER_MIGRATIONS_DIR"},
	"ledger.redis.addr":         {"REDIS_ADDR"},
	"ledger.redis.password":     {"REDIS_PASSWORD"},
	"ledger.postgres.host":      {"POSTGRES_HOST"},
	"ledger.postgres.port":      {"POSTGRES_PORT"},
	"ledger.postgres.user":      {"POSTGRES_USER"},
	"ledger.postgres.password":  {"POSTGRES_PASSWORD"},
	"ledger.postgres.dbname":    {"POSTGRES_DB"},
	"ledger.sqlite_path":        {"SQLITE_PATH"},
	"kafka.brokers":             {"KAFKA_BROKERS"},
	"firebase.enabled":          {"FIREBASE_ENABLED"},
	"firebase.project_id":       {"FIREBASE_PROJECT_ID"},
	"firebase.credentials_file": {"GOOGLE_APPLICATION_CREDENTIALS"},
	"log.level":                 {"LOG_LEVEL"},
}
