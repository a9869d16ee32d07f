package config

import "reflexledger/native/fees"

// Token describes the token created on first start. Amounts are decimal
// strings of whole tokens, scaled by Decimals.
type Token struct {
	Name                  string `toml:"Name" yaml:"name"`
	Symbol                string `toml:"Symbol" yaml:"symbol"`
	Decimals              uint8  `toml:"Decimals" yaml:"decimals"`
	Address               string `toml:"Address" yaml:"address"`
	Owner                 string `toml:"Owner" yaml:"owner"`
	TotalSupply           string `toml:"TotalSupply" yaml:"totalSupply"`
	MaxTxPercent          uint64 `toml:"MaxTxPercent" yaml:"maxTxPercent"`
	Threshold             string `toml:"Threshold" yaml:"threshold"`
	SwapAndLiquifyEnabled bool   `toml:"SwapAndLiquifyEnabled" yaml:"swapAndLiquifyEnabled"`
}

// Storage selects the key/value backend.
type Storage struct {
	Backend string `toml:"Backend" yaml:"backend"`
	Path    string `toml:"Path" yaml:"path"`
}

// AMM configures the built-in constant-product router. When disabled the
// token runs without swap and liquify until a router is set.
type AMM struct {
	Enabled bool   `toml:"Enabled" yaml:"enabled"`
	Router  string `toml:"Router" yaml:"router"`
	Wrapped string `toml:"Wrapped" yaml:"wrapped"`
}

type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	Env        string `toml:"Env" yaml:"env"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
}

// Telemetry toggles the OTLP/HTTP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Headers     string  `toml:"Headers" yaml:"headers"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sampleRatio"`
}

// Archive configures the SQLite event archive. An empty Path disables it.
type Archive struct {
	Path string `toml:"Path" yaml:"path"`
}

// Webhook forwards committed ledger events to an HTTP endpoint. The signing
// secret is read from the environment variable named by SecretEnv. An empty
// Endpoint disables delivery.
type Webhook struct {
	Endpoint  string   `toml:"Endpoint" yaml:"endpoint"`
	SecretEnv string   `toml:"SecretEnv" yaml:"secretEnv"`
	Topics    []string `toml:"Topics" yaml:"topics"`

	// RatePerSecond paces deliveries; zero disables pacing.
	RatePerSecond float64 `toml:"RatePerSecond" yaml:"ratePerSecond"`
	Burst         int     `toml:"Burst" yaml:"burst"`
}

// Config is the full node configuration.
type Config struct {
	Service   string        `toml:"Service" yaml:"service"`
	Token     Token         `toml:"token" yaml:"token"`
	Fees      fees.Schedule `toml:"fees" yaml:"fees"`
	Storage   Storage       `toml:"storage" yaml:"storage"`
	AMM       AMM           `toml:"amm" yaml:"amm"`
	Logging   Logging       `toml:"logging" yaml:"logging"`
	Telemetry Telemetry     `toml:"telemetry" yaml:"telemetry"`
	Archive   Archive       `toml:"archive" yaml:"archive"`
	Webhook   Webhook       `toml:"webhook" yaml:"webhook"`
}
