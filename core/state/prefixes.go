package state

import "github.com/ethereum/go-ethereum/common"

var (
	accountPrefix = []byte("reflection/account/")
	basePrefix    = []byte("base/balance/")
)

func accountKey(addr common.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr.Bytes()...)
}

func baseBalanceKey(addr common.Address) []byte {
	return append(append([]byte(nil), basePrefix...), addr.Bytes()...)
}
