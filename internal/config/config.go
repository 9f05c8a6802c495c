/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the paga-gateway.
// These values are loaded from environment variables.
type Config struct {
	ServerPort      string `mapstructure:"SERVER_PORT"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	RabbitMQURL     string `mapstructure:"RABBITMQ_URL"`
	PagaBaseURL     string `mapstructure:"PAGA_BASE_URL"`
	PagaHashKey     string `mapstructure:"PAGA_API_KEY_HMAC"`
	PagaPrincipal   string `mapstructure:"PAGA_PRINCIPAL_PUBLIC_KEY"`
	PagaCredential  string `mapstructure:"PAGA_CREDENTIAL"`
	IdentityAPIURL  string `mapstructure:"IDENTITY_API_URL"`
	IdentityAPIKey  string `mapstructure:"IDENTITY_API_KEY"`
	IdentityJWKSURL string `mapstructure:"IDENTITY_JWKS_URL"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PAGA_BASE_URL", "https://www.mypaga.com")
	viper.SetDefault("IDENTITY_API_URL", "https://identitytoolkit.googleapis.com")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAGA_BASE_URL")
	_ = viper.BindEnv("PAGA_API_KEY_HMAC", "PAGA_API_KEY_HMAC", "PAGA_HASH_KEY")
	_ = viper.BindEnv("PAGA_PRINCIPAL_PUBLIC_KEY", "PAGA_PRINCIPAL_PUBLIC_KEY", "PAGA_PRINCIPAL")
	_ = viper.BindEnv("PAGA_CREDENTIAL")
	_ = viper.BindEnv("IDENTITY_API_URL")
	_ = viper.BindEnv("IDENTITY_API_KEY")
	_ = viper.BindEnv("IDENTITY_JWKS_URL")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.PagaBaseURL = strings.TrimRight(strings.TrimSpace(config.PagaBaseURL), "/")
	config.PagaHashKey = strings.TrimSpace(config.PagaHashKey)
	config.PagaPrincipal = strings.TrimSpace(config.PagaPrincipal)
	config.PagaCredential = strings.TrimSpace(config.PagaCredential)
	config.IdentityAPIURL = strings.TrimRight(strings.TrimSpace(config.IdentityAPIURL), "/")

	return
}
