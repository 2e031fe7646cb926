package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Settlement    SettlementConfig    `mapstructure:"settlement"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	TokenSecret string `mapstructure:"token_secret" validate:"required,min=32"`
}

// SettlementConfig tunes the payment verification engine per deployment.
// Nothing in the engine is hardcoded; every bound and timeout comes from here.
type SettlementConfig struct {
	MinAmountMinorUnits int64         `mapstructure:"min_amount_minor_units"`
	MaxAmountMinorUnits int64         `mapstructure:"max_amount_minor_units"`
	IntentTTL           time.Duration `mapstructure:"intent_ttl"`
	VerifyTimeout       time.Duration `mapstructure:"verify_timeout"`
	VerifyThrottle      time.Duration `mapstructure:"verify_throttle"`
	MinConfirmations    uint64        `mapstructure:"min_confirmations"`
	ChainID             int64         `mapstructure:"chain_id"`
	TokenAddress        string        `mapstructure:"token_address"`
	TokenDecimals       int           `mapstructure:"token_decimals"`
	DepositAddress      string        `mapstructure:"deposit_address"`
	RPCURL              string        `mapstructure:"rpc_url"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Settlement.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("settlement config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.TokenSecret) < 32 {
		return errors.New("token secret must be at least 32 characters")
	}
	return nil
}

func (c *SettlementConfig) Validate() error {
	if c.MinAmountMinorUnits <= 0 {
		return errors.New("min_amount_minor_units must be positive")
	}
	if c.MaxAmountMinorUnits < c.MinAmountMinorUnits {
		return errors.New("max_amount_minor_units must be >= min_amount_minor_units")
	}
	if c.IntentTTL <= 0 {
		return errors.New("intent_ttl must be positive")
	}
	if c.VerifyTimeout <= 0 {
		return errors.New("verify_timeout must be positive")
	}
	if c.VerifyThrottle <= 0 {
		return errors.New("verify_throttle must be positive")
	}
	if c.MinConfirmations == 0 {
		return errors.New("min_confirmations must be at least 1")
	}
	if c.ChainID <= 0 {
		return errors.New("chain_id must be positive")
	}
	if !IsHexAddress(c.TokenAddress) {
		return fmt.Errorf("token_address %q is not a valid address", c.TokenAddress)
	}
	if !IsHexAddress(c.DepositAddress) {
		return fmt.Errorf("deposit_address %q is not a valid address", c.DepositAddress)
	}
	// Minor units are hundredths of the reference currency, so the token
	// needs at least two decimals for the conversion to stay integral.
	if c.TokenDecimals < 2 || c.TokenDecimals > 30 {
		return errors.New("token_decimals must be between 2 and 30")
	}
	if c.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	return nil
}
