// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Token makers.
const (
	TokenMakerPaseto = "paseto"
	TokenMakerJWT    = "jwt"
)

// Transfer authorization modes.
const (
	// TransferAuthNone lets any authenticated caller move funds between two valid account numbers.
	TransferAuthNone = "none"
	// TransferAuthSourceOwner requires the caller to own the source account.
	TransferAuthSourceOwner = "require-source-ownership"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver                string        `mapstructure:"DB_DRIVER"`
	DBSource                string        `mapstructure:"DB_SOURCE"`
	MigrationURL            string        `mapstructure:"MIGRATION_URL"`
	Storage                 string        `mapstructure:"STORAGE"`
	ServerAddress           string        `mapstructure:"SERVER_ADDRESS"`
	TokenMaker              string        `mapstructure:"TOKEN_MAKER"`
	TokenSymmetricKey       string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration     time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	TransferAuthMode        string        `mapstructure:"TRANSFER_AUTH_MODE"`
	AccountNumberMaxRetries int           `mapstructure:"ACCOUNT_NUMBER_MAX_RETRIES"`
	Environement            string        `mapstructure:"GO_ENV"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("TOKEN_MAKER", TokenMakerPaseto)
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("TRANSFER_AUTH_MODE", TransferAuthSourceOwner)
	v.SetDefault("ACCOUNT_NUMBER_MAX_RETRIES", 5)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

// Validate reports the first configuration value that is out of its allowed set.
func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unsupported STORAGE %q", c.Storage)
	}

	switch c.TokenMaker {
	case TokenMakerPaseto, TokenMakerJWT:
	default:
		return fmt.Errorf("unsupported TOKEN_MAKER %q", c.TokenMaker)
	}

	switch c.TransferAuthMode {
	case TransferAuthNone, TransferAuthSourceOwner:
	default:
		return fmt.Errorf("unsupported TRANSFER_AUTH_MODE %q", c.TransferAuthMode)
	}

	if c.AccountNumberMaxRetries < 1 {
		return fmt.Errorf("ACCOUNT_NUMBER_MAX_RETRIES must be positive, got %d", c.AccountNumberMaxRetries)
	}

	return nil
}
