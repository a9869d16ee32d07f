package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"reflexledger/native/fees"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

// OwnerKeyFile is written next to a generated default configuration and holds
// the owner's private key.
const OwnerKeyFile = "owner.key"

// Default returns the stock configuration. Owner is left empty.
func Default() *Config {
	return &Config{
		Service: "reflexledger",
		Token: Token{
			Name:                  "Arcane Token",
			Symbol:                "Arcane",
			Decimals:              18,
			TotalSupply:           "600000000",
			MaxTxPercent:          fees.MaxPercent,
			Threshold:             "300000",
			SwapAndLiquifyEnabled: true,
		},
		Fees:    fees.DefaultSchedule(),
		Storage: Storage{Backend: BackendMemory},
		AMM:     AMM{Enabled: true},
		Logging: Logging{Level: "info", Env: "local", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// Load reads the configuration at path. TOML is used unless the extension is
// .yaml or .yml. A missing file is created from Default with a freshly
// generated owner key.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result. Unknown keys are
// rejected in both formats.
func Parse(data []byte, asYAML bool) (*Config, error) {
	cfg := Default()
	if asYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	} else {
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func createDefault(path string) (*Config, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if err := ethcrypto.SaveECDSA(filepath.Join(filepath.Dir(path), OwnerKeyFile), key); err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.Token.Owner = ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func persist(path string, cfg *Config) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

// OwnerAddress returns the configured owner.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Token.Owner)
}

// TokenAddress returns the configured token address, or the address the owner
// would deploy its first contract at.
func (c *Config) TokenAddress() common.Address {
	return c.derived(c.Token.Address, 0)
}

// RouterAddress returns the router address, derived like TokenAddress when unset.
func (c *Config) RouterAddress() common.Address {
	return c.derived(c.AMM.Router, 1)
}

// WrappedAddress returns the base-currency stand-in used in swap paths.
func (c *Config) WrappedAddress() common.Address {
	return c.derived(c.AMM.Wrapped, 2)
}

func (c *Config) derived(value string, nonce uint64) common.Address {
	if strings.TrimSpace(value) != "" {
		return common.HexToAddress(value)
	}
	return ethcrypto.CreateAddress(c.OwnerAddress(), nonce)
}
