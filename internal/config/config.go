// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
)

// Config represents the application configuration
type Config struct {
	APIName          string `env:"TB_API_APP_NAME" default:"Tagbin API"`
	APIVersion       string `env:"TB_API_APP_VERSION" default:"dev"`
	ServerPort       string `env:"TB_API_SERVER_PORT" default:"3009"`
	ServerLogLevel   string `env:"TB_API_SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn      string `env:"TB_API_PG_DSN"`
	PostgresSchema   string `env:"TB_API_PG_SCHEMA" default:"api"`
	PostgresLogLevel string `env:"TB_API_PG_LOG_LEVEL" default:"warn"`
	RedisHost        string `env:"TB_API_REDIS_HOST"`
	RedisPort        string `env:"TB_API_REDIS_PORT" default:"6379"`
	RedisPassword    string `env:"TB_API_REDIS_PASSWORD" default:""`
	StorageDir       string `env:"TB_API_STORAGE_DIR" default:"uploads"`
	SessionTTLMillis string `env:"TB_API_SESSION_TTL_MS" default:"3600000"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables. Fields
// without a `default` tag are required.
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value := os.Getenv(envTag)
		if value == "" {
			defaultValue, hasDefault := field.Tag.Lookup("default")
			if !hasDefault {
				return fmt.Errorf("env variable %s is required but not set", envTag)
			}
			value = defaultValue
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
