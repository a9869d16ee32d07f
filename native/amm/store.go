package amm

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	reservesPrefix    = []byte("amm/reserves/")
	sharesPrefix      = []byte("amm/shares/")
	totalSharesPrefix = []byte("amm/shares/total/")
)

type ammState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	BaseBalance(addr common.Address) (*uint256.Int, error)
	TransferBase(from, to common.Address, amount *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int) error
	DiscardSnapshot(id int)
}

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

func reservesKey(pair common.Address) []byte {
	return append(append([]byte(nil), reservesPrefix...), pair.Bytes()...)
}

func sharesKey(pair, holder common.Address) []byte {
	key := append(append([]byte(nil), sharesPrefix...), pair.Bytes()...)
	return append(key, holder.Bytes()...)
}

func totalSharesKey(pair common.Address) []byte {
	return append(append([]byte(nil), totalSharesPrefix...), pair.Bytes()...)
}

func (r *Router) loadReserves(pair common.Address) (Reserves, bool, error) {
	var stored Reserves
	ok, err := r.state.KVGet(reservesKey(pair), &stored)
	if err != nil {
		return Reserves{}, false, err
	}
	return stored.copy(), ok, nil
}

func (r *Router) putReserves(pair common.Address, reserves Reserves) error {
	return r.state.KVPut(reservesKey(pair), reserves.copy())
}

func (r *Router) loadAmount(key []byte) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if _, err := r.state.KVGet(key, amount); err != nil {
		return nil, err
	}
	return amount, nil
}
