package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/native/fees"
	"reflexledger/native/token"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token.Name) == "" || strings.TrimSpace(c.Token.Symbol) == "" {
		return fmt.Errorf("%w: token name and symbol required", ErrInvalid)
	}
	if c.Token.Decimals > 36 {
		return fmt.Errorf("%w: token decimals %d above 36", ErrInvalid, c.Token.Decimals)
	}
	if err := checkAddress("token.Owner", c.Token.Owner, true); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"token.Address": c.Token.Address,
		"amm.Router":    c.AMM.Router,
		"amm.Wrapped":   c.AMM.Wrapped,
	} {
		if err := checkAddress(field, value, false); err != nil {
			return err
		}
	}
	supply, err := c.TotalSupply()
	if err != nil {
		return err
	}
	if supply.IsZero() {
		return fmt.Errorf("%w: token.TotalSupply must be positive", ErrInvalid)
	}
	if _, err := c.Threshold(); err != nil {
		return err
	}
	if c.Token.MaxTxPercent > fees.MaxPercent {
		return fmt.Errorf("%w: token.MaxTxPercent %d above %d", ErrInvalid, c.Token.MaxTxPercent, fees.MaxPercent)
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("%w: fees: %w", ErrInvalid, err)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("%w: storage.Path required for leveldb", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.SampleRatio must be within [0,1]", ErrInvalid)
	}
	return c.validateWebhook()
}

func (c *Config) validateWebhook() error {
	endpoint := strings.TrimSpace(c.Webhook.Endpoint)
	if endpoint == "" {
		return nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: webhook.Endpoint must be an http(s) URL", ErrInvalid)
	}
	if strings.TrimSpace(c.Webhook.SecretEnv) == "" {
		return fmt.Errorf("%w: webhook.SecretEnv required", ErrInvalid)
	}
	if c.Webhook.RatePerSecond < 0 || c.Webhook.Burst < 0 {
		return fmt.Errorf("%w: webhook rate limit must not be negative", ErrInvalid)
	}
	for _, topic := range c.Webhook.Topics {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("%w: webhook.Topics contains an empty topic", ErrInvalid)
		}
	}
	return nil
}

// WebhookSecret resolves the webhook signing secret from the environment.
func (c *Config) WebhookSecret() ([]byte, error) {
	name := strings.TrimSpace(c.Webhook.SecretEnv)
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil, fmt.Errorf("%w: environment variable %s is empty", ErrInvalid, name)
	}
	return []byte(secret), nil
}

func checkAddress(field, value string, required bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return fmt.Errorf("%w: %s required", ErrInvalid, field)
		}
		return nil
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%w: %s is not a hex address", ErrInvalid, field)
	}
	if common.HexToAddress(value) == (common.Address{}) {
		return fmt.Errorf("%w: %s is the zero address", ErrInvalid, field)
	}
	return nil
}

// TotalSupply returns the supply in base units.
func (c *Config) TotalSupply() (*uint256.Int, error) {
	return c.scaled("token.TotalSupply", c.Token.TotalSupply)
}

// Threshold returns the swap and liquify threshold in base units.
func (c *Config) Threshold() (*uint256.Int, error) {
	return c.scaled("token.Threshold", c.Token.Threshold)
}

func (c *Config) scaled(field, whole string) (*uint256.Int, error) {
	whole = strings.ReplaceAll(strings.TrimSpace(whole), "_", "")
	if whole == "" {
		whole = "0"
	}
	value, err := uint256.FromDecimal(whole)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, field, err)
	}
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(c.Token.Decimals)))
	out, overflow := new(uint256.Int).MulOverflow(value, unit)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows", ErrInvalid, field)
	}
	return out, nil
}

// TokenParams converts the configuration into creation parameters.
func (c *Config) TokenParams() (token.Params, error) {
	supply, err := c.TotalSupply()
	if err != nil {
		return token.Params{}, err
	}
	threshold, err := c.Threshold()
	if err != nil {
		return token.Params{}, err
	}
	return token.Params{
		Address:               c.TokenAddress(),
		Owner:                 c.OwnerAddress(),
		Name:                  c.Token.Name,
		Symbol:                c.Token.Symbol,
		Decimals:              c.Token.Decimals,
		TotalSupply:           supply,
		Fees:                  c.Fees,
		MaxTxPercent:          c.Token.MaxTxPercent,
		Threshold:             threshold,
		SwapAndLiquifyEnabled: c.Token.SwapAndLiquifyEnabled,
	}, nil
}
