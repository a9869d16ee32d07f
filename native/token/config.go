package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/native/fees"
	"reflexledger/native/liquidity"
)

var (
	metadataKey = []byte("token/metadata")
	settingsKey = []byte("token/settings")
)

type metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
	Address  common.Address
}

// settings is the owner-controlled configuration persisted with the ledger.
type settings struct {
	TransferLiquidity uint64
	TransferTax       uint64
	SwapLiquidity     uint64
	SwapTax           uint64
	MaxTxPercent      uint64
	MaxTxAmount       *uint256.Int
	Threshold         *uint256.Int
	Enabled           bool
	Router            common.Address
	Pair              common.Address
}

func (s settings) schedule() fees.Schedule {
	return fees.Schedule{
		Transfer: fees.Profile{Liquidity: s.TransferLiquidity, Tax: s.TransferTax},
		Swap:     fees.Profile{Liquidity: s.SwapLiquidity, Tax: s.SwapTax},
	}
}

func (s *settings) setSchedule(schedule fees.Schedule) {
	s.TransferLiquidity = schedule.Transfer.Liquidity
	s.TransferTax = schedule.Transfer.Tax
	s.SwapLiquidity = schedule.Swap.Liquidity
	s.SwapTax = schedule.Swap.Tax
}

func (s settings) liquidity() liquidity.Config {
	return liquidity.Config{Enabled: s.Enabled, Threshold: s.Threshold, Pair: s.Pair}
}

func (t *Token) loadSettings() (settings, error) {
	var s settings
	ok, err := t.state.KVGet(settingsKey, &s)
	if err != nil {
		return settings{}, err
	}
	if !ok {
		return settings{}, fmt.Errorf("token: settings missing")
	}
	if s.MaxTxAmount == nil {
		s.MaxTxAmount = new(uint256.Int)
	}
	if s.Threshold == nil {
		s.Threshold = new(uint256.Int)
	}
	return s, nil
}

func (t *Token) putSettings(s settings) error {
	return t.state.KVPut(settingsKey, &s)
}

func (t *Token) loadMetadata() (metadata, bool, error) {
	var m metadata
	ok, err := t.state.KVGet(metadataKey, &m)
	if err != nil {
		return metadata{}, false, err
	}
	return m, ok, nil
}
