// Package config loads the relay configuration from defaults, an optional
// YAML file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	required := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if c.Gateway.AppID <= 0 {
		errs = append(errs, errors.New("gateway.app_id must be positive"))
	}
	required("gateway.key1", c.Gateway.Key1)
	required("gateway.key2", c.Gateway.Key2)
	if c.Gateway.Key1 != "" && c.Gateway.Key1 == c.Gateway.Key2 {
		errs = append(errs, errors.New("gateway.key1 and gateway.key2 must differ"))
	}
	required("gateway.endpoint", c.Gateway.Endpoint)
	required("backend.url", c.Backend.URL)
	required("server.public_base_url", c.Server.PublicBaseURL)

	if c.Backend.UsesSecretManager() {
		required("backend.secret_project", c.Backend.SecretProject)
	} else {
		required("backend.username", c.Backend.Username)
		required("backend.password", c.Backend.Password)
	}

	switch c.Ledger.Driver {
	case LedgerMemory, LedgerRedis, LedgerPostgres, LedgerSQLite:
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q is not one of memory, redis, postgres, sqlite", c.Ledger.Driver))
	}

	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}

	return errors.Join(errs...)
}
