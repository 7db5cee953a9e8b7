package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the auth server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"` // empty disables the Redis revocation store
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Token signing. The secret is shared between issuer and verifier
	// (HMAC), configured out of band.
	JWTSignerKey   string `mapstructure:"JWT_SIGNER_KEY"`
	AccessTTLSecs  int64  `mapstructure:"ACCESS_TOKEN_TTL_SEC"`
	RefreshTTLSecs int64  `mapstructure:"REFRESH_TOKEN_TTL_SEC"`

	// External identity provider (Ory Kratos compatible).
	KratosPublicURL   string `mapstructure:"KRATOS_PUBLIC_URL"`
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
}

// AccessTTL returns the access-token lifetime as a duration.
func (c *ServerConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSecs) * time.Second
}

// RefreshTTL returns the refresh-token lifetime as a duration.
func (c *ServerConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSecs) * time.Second
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/taskhive-auth/")
	v.AddConfigPath("$HOME/.taskhive-auth")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/taskhive_auth_dev")
	v.SetDefault("MONGO_DB_NAME", "taskhive_auth_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SIGNER_KEY", "a_very_secret_signing_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("ACCESS_TOKEN_TTL_SEC", 3600)
	v.SetDefault("REFRESH_TOKEN_TTL_SEC", 604800) // 7 days
	v.SetDefault("KRATOS_PUBLIC_URL", "http://localhost:4433")
	v.SetDefault("SESSION_COOKIE_NAME", "ory_kratos_session")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
