package fees

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	nativecommon "reflexledger/native/common"
)

func TestProfileValidate(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{name: "zero", profile: Profile{}},
		{name: "defaults", profile: Profile{Liquidity: 2}},
		{name: "boundary", profile: Profile{Liquidity: 60, Tax: 40}},
		{name: "single field at limit", profile: Profile{Tax: 100}},
		{name: "field above limit", profile: Profile{Liquidity: 101}, wantErr: true},
		{name: "sum above limit", profile: Profile{Liquidity: 60, Tax: 41}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.profile.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrFeeTooHigh)
				require.ErrorIs(t, err, nativecommon.ErrInvariantViolation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestComputeSplitsAmount(t *testing.T) {
	values, err := Compute(Input{
		Amount:  uint256.NewInt(1000),
		Rate:    uint256.NewInt(7),
		Profile: Profile{Liquidity: 5, Tax: 10},
		TakeFee: true,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(100), values.TokenFee.Uint64())
	require.Equal(t, uint64(50), values.TokenLiquidity.Uint64())
	require.Equal(t, uint64(850), values.TokenTransferAmount.Uint64())
	require.Equal(t, uint64(7000), values.ReflectedAmount.Uint64())
	require.Equal(t, uint64(700), values.ReflectedFee.Uint64())
	require.Equal(t, uint64(350), values.ReflectedLiquidity.Uint64())
	require.Equal(t, uint64(5950), values.ReflectedTransferAmount.Uint64())
}

func TestComputeWithoutFee(t *testing.T) {
	values, err := Compute(Input{
		Amount:  uint256.NewInt(999),
		Rate:    uint256.NewInt(3),
		Profile: Profile{Liquidity: 50, Tax: 50},
		TakeFee: false,
	})
	require.NoError(t, err)
	require.True(t, values.TokenFee.IsZero())
	require.True(t, values.TokenLiquidity.IsZero())
	require.Equal(t, uint64(999), values.TokenTransferAmount.Uint64())
	require.Equal(t, values.ReflectedAmount, values.ReflectedTransferAmount)
}

func TestComputeFullFeeLeavesNothing(t *testing.T) {
	values, err := Compute(Input{
		Amount:  uint256.NewInt(10),
		Rate:    uint256.NewInt(1),
		Profile: Profile{Liquidity: 30, Tax: 70},
		TakeFee: true,
	})
	require.NoError(t, err)
	require.True(t, values.TokenTransferAmount.IsZero())
	require.True(t, values.ReflectedTransferAmount.IsZero())
}

func TestComputeRejectsOverflow(t *testing.T) {
	limit := new(uint256.Int).SetAllOne()
	_, err := Compute(Input{Amount: limit, Rate: uint256.NewInt(2), TakeFee: false})
	if !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestScheduleSelect(t *testing.T) {
	schedule := Schedule{Transfer: Profile{Liquidity: 2}, Swap: Profile{Liquidity: 5, Tax: 1}}
	pair := common.HexToAddress("0xfeed")
	alice := common.HexToAddress("0xa11ce")
	bob := common.HexToAddress("0xb0b")

	if got := schedule.Select(alice, bob, pair, true); got != schedule.Transfer {
		t.Fatalf("expected transfer profile, got %+v", got)
	}
	if got := schedule.Select(pair, bob, pair, true); got != schedule.Swap {
		t.Fatalf("expected swap profile for buys, got %+v", got)
	}
	if got := schedule.Select(alice, pair, pair, true); got != schedule.Swap {
		t.Fatalf("expected swap profile for sells, got %+v", got)
	}
	if got := schedule.Select(alice, pair, pair, false); got != (Profile{}) {
		t.Fatalf("expected zero profile when fees are skipped, got %+v", got)
	}
	if got := schedule.Select(alice, bob, common.Address{}, true); got != schedule.Transfer {
		t.Fatalf("expected transfer profile without a pair, got %+v", got)
	}
}

func TestMaxTxAmount(t *testing.T) {
	total := uint256.NewInt(600)
	amount, err := MaxTxAmount(total, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(30), amount.Uint64())

	amount, err = MaxTxAmount(total, 100)
	require.NoError(t, err)
	require.Equal(t, total, amount)

	_, err = MaxTxAmount(total, 101)
	require.ErrorIs(t, err, ErrLimitTooHigh)
}
