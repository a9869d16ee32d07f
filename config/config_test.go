package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"reflexledger/native/fees"
)

const testOwner = "0x00000000000000000000000000000000000000a1"

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Service = "arcane-test"

[token]
Owner = "` + testOwner + `"
Name = "Test Token"
Symbol = "TT"
Decimals = 9
TotalSupply = "1_000_000"
MaxTxPercent = 5
Threshold = "500"
SwapAndLiquifyEnabled = false

[fees.transfer]
liquidity = 3
tax = 1

[fees.swap]
liquidity = 7
tax = 0

[storage]
Backend = "leveldb"
Path = "./data"

[telemetry]
Traces = true
SampleRatio = 0.5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Service != "arcane-test" || cfg.Token.Name != "Test Token" || cfg.Token.Decimals != 9 {
		t.Fatalf("unexpected token section %+v", cfg.Token)
	}
	if cfg.Fees.Transfer != (fees.Profile{Liquidity: 3, Tax: 1}) || cfg.Fees.Swap != (fees.Profile{Liquidity: 7}) {
		t.Fatalf("unexpected fees %+v", cfg.Fees)
	}
	if cfg.Storage.Backend != BackendLevelDB || cfg.Storage.Path != "./data" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.SampleRatio != 0.5 {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	// Untouched sections keep their defaults.
	if cfg.Logging.Level != "info" || !cfg.AMM.Enabled {
		t.Fatalf("defaults lost: logging %+v amm %+v", cfg.Logging, cfg.AMM)
	}

	params, err := cfg.TokenParams()
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testOwner), params.Owner)
	require.Equal(t, uint256.NewInt(1_000_000_000_000_000), params.TotalSupply)
	require.Equal(t, uint256.NewInt(500_000_000_000), params.Threshold)
	require.Equal(t, uint64(5), params.MaxTxPercent)
	require.False(t, params.SwapAndLiquifyEnabled)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `token:
  owner: "` + testOwner + `"
  threshold: "1000"
fees:
  transfer:
    liquidity: 0
    tax: 0
amm:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, fees.Profile{}, cfg.Fees.Transfer)
	require.Equal(t, fees.Profile{Liquidity: 5}, cfg.Fees.Swap)
	require.False(t, cfg.AMM.Enabled)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "Arcane Token", cfg.Token.Name)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[token]\nOwner = \""+testOwner+"\"\nReflectionMode = \"fast\"\n"), 0o644))
	_, err := Load(tomlPath)
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), "token.ReflectionMode")

	yamlPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("token:\n  owner: \""+testOwner+"\"\n  colour: red\n"), 0o644))
	_, err = Load(yamlPath)
	require.Error(t, err)
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, cfg.OwnerAddress())

	key, err := ethcrypto.LoadECDSA(filepath.Join(dir, "nested", OwnerKeyFile))
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey), cfg.OwnerAddress())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Token, reloaded.Token)
	require.Equal(t, cfg.Fees, reloaded.Fees)
	require.Equal(t, ethcrypto.CreateAddress(cfg.OwnerAddress(), 0), reloaded.TokenAddress())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"missing owner":    func(c *Config) { c.Token.Owner = "" },
		"bad owner":        func(c *Config) { c.Token.Owner = "not-an-address" },
		"zero router":      func(c *Config) { c.AMM.Router = "0x0000000000000000000000000000000000000000" },
		"fee too high":     func(c *Config) { c.Fees.Transfer = fees.Profile{Liquidity: 60, Tax: 41} },
		"max tx too high":  func(c *Config) { c.Token.MaxTxPercent = 101 },
		"zero supply":      func(c *Config) { c.Token.TotalSupply = "0" },
		"bad threshold":    func(c *Config) { c.Token.Threshold = "lots" },
		"supply overflow":  func(c *Config) { c.Token.TotalSupply = strings.Repeat("9", 70) },
		"unknown backend":  func(c *Config) { c.Storage.Backend = "etcd" },
		"leveldb sans dir": func(c *Config) { c.Storage.Backend = BackendLevelDB },
		"sample ratio":     func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
		"webhook scheme":   func(c *Config) { c.Webhook = Webhook{Endpoint: "ftp://hooks", SecretEnv: "HOOK_SECRET"} },
		"webhook secret":   func(c *Config) { c.Webhook = Webhook{Endpoint: "https://hooks.example"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Token.Owner = testOwner
			mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Token.Owner = testOwner
	cfg.Fees.Transfer = fees.Profile{Liquidity: 100}
	require.NoError(t, cfg.Validate())
}

func TestWebhookSecretFromEnvironment(t *testing.T) {
	cfg := Default()
	cfg.Token.Owner = testOwner
	cfg.Webhook = Webhook{Endpoint: "https://hooks.example/ledger", SecretEnv: "REFLEX_TEST_HOOK_SECRET"}
	require.NoError(t, cfg.Validate())

	t.Setenv("REFLEX_TEST_HOOK_SECRET", "")
	_, err := cfg.WebhookSecret()
	require.ErrorIs(t, err, ErrInvalid)

	t.Setenv("REFLEX_TEST_HOOK_SECRET", "s3cret")
	secret, err := cfg.WebhookSecret()
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), secret)
}
