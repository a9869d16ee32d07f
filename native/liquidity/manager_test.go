package liquidity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
	nativecommon "reflexledger/native/common"
)

var (
	tokenAddr = common.HexToAddress("0x0000000000000000000000000000000000000010")
	pairAddr  = common.HexToAddress("0x0000000000000000000000000000000000000020")
	ownerAddr = common.HexToAddress("0x0000000000000000000000000000000000000030")
)

type baseBook map[common.Address]*uint256.Int

func (b baseBook) BaseBalance(addr common.Address) (*uint256.Int, error) {
	if v, ok := b[addr]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return new(uint256.Int), nil
}

type fakeRouter struct {
	base       baseBook
	rate       uint64
	swapErr    error
	addErr     error
	onSwap     func(ctx context.Context)
	swappedIn  *uint256.Int
	addedToken *uint256.Int
	addedBase  *uint256.Int
	recipient  common.Address
}

func (f *fakeRouter) Address() common.Address { return common.HexToAddress("0x40") }
func (f *fakeRouter) WrappedBase() common.Address { return common.HexToAddress("0x50") }

func (f *fakeRouter) PairFor(common.Address) (common.Address, error) { return pairAddr, nil }

func (f *fakeRouter) SwapExactTokensForBase(ctx context.Context, from common.Address, amountIn, _ *uint256.Int, path []common.Address, recipient common.Address, _ time.Time) (*uint256.Int, error) {
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	if f.onSwap != nil {
		f.onSwap(ctx)
	}
	f.swappedIn = new(uint256.Int).Set(amountIn)
	out := new(uint256.Int).Div(amountIn, uint256.NewInt(f.rate))
	current, _ := f.base.BaseBalance(recipient)
	f.base[recipient] = current.Add(current, out)
	return out, nil
}

func (f *fakeRouter) AddLiquidity(_ context.Context, from, _ common.Address, tokenAmount, baseAmount, _, _ *uint256.Int, recipient common.Address, _ time.Time) (AddLiquidityResult, error) {
	if f.addErr != nil {
		return AddLiquidityResult{}, f.addErr
	}
	f.addedToken = new(uint256.Int).Set(tokenAmount)
	f.addedBase = new(uint256.Int).Set(baseAmount)
	f.recipient = recipient
	return AddLiquidityResult{UsedToken: tokenAmount, UsedBase: baseAmount, Liquidity: uint256.NewInt(7)}, nil
}

func newTestManager() (*Manager, *fakeRouter, *events.Buffer) {
	book := baseBook{tokenAddr: uint256.NewInt(3)}
	router := &fakeRouter{base: book, rate: 10}
	m := NewManager(tokenAddr, router, book)
	buf := &events.Buffer{}
	m.SetEmitter(buf)
	return m, router, buf
}

func TestShouldTrigger(t *testing.T) {
	m, _, _ := newTestManager()
	cfg := Config{Enabled: true, Threshold: uint256.NewInt(100), Pair: pairAddr}
	user := common.HexToAddress("0x99")

	if !m.ShouldTrigger(cfg, uint256.NewInt(100), user) {
		t.Fatalf("expected trigger at threshold")
	}
	if m.ShouldTrigger(cfg, uint256.NewInt(99), user) {
		t.Fatalf("expected no trigger below threshold")
	}
	if m.ShouldTrigger(cfg, uint256.NewInt(1000), pairAddr) {
		t.Fatalf("expected no trigger for transfers out of the pair")
	}
	cfg.Enabled = false
	if m.ShouldTrigger(cfg, uint256.NewInt(1000), user) {
		t.Fatalf("expected no trigger while disabled")
	}
}

func TestRunSplitsBalance(t *testing.T) {
	m, router, buf := newTestManager()
	result, err := m.Run(context.Background(), uint256.NewInt(1001), ownerAddr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.TokensSwapped.Uint64() != 500 || result.TokensIntoLiquidity.Uint64() != 501 {
		t.Fatalf("unexpected split %s/%s", result.TokensSwapped, result.TokensIntoLiquidity)
	}
	if result.BaseReceived.Uint64() != 50 {
		t.Fatalf("expected base delta of 50 ignoring pre-existing balance, got %s", result.BaseReceived)
	}
	if router.addedToken.Uint64() != 501 || router.addedBase.Uint64() != 50 {
		t.Fatalf("unexpected liquidity deposit %s/%s", router.addedToken, router.addedBase)
	}
	if router.recipient != ownerAddr {
		t.Fatalf("expected LP tokens for owner, got %s", router.recipient.Hex())
	}
	if m.InSwap() || m.State() != StateIdle {
		t.Fatalf("expected guard released")
	}
	emitted := buf.OfType(events.TypeSwapAndLiquify)
	if len(emitted) != 1 {
		t.Fatalf("expected one swap and liquify event, got %d", len(emitted))
	}
	if evt := emitted[0].(events.SwapAndLiquify); evt.LiquidityMinted.Uint64() != 7 {
		t.Fatalf("unexpected minted liquidity %s", evt.LiquidityMinted)
	}
}

func TestRunReleasesGuardOnFailure(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(*fakeRouter)
	}{
		{name: "swap", setup: func(r *fakeRouter) { r.swapErr = errors.New("swap reverted") }},
		{name: "add liquidity", setup: func(r *fakeRouter) { r.addErr = errors.New("add reverted") }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, router, buf := newTestManager()
			tc.setup(router)
			_, err := m.Run(context.Background(), uint256.NewInt(100), ownerAddr)
			if !errors.Is(err, ErrExternalCall) || !errors.Is(err, nativecommon.ErrExternalCallFailure) {
				t.Fatalf("expected external call failure, got %v", err)
			}
			if m.InSwap() {
				t.Fatalf("expected guard released after failure")
			}
			if buf.Len() != 0 {
				t.Fatalf("expected no events on failure")
			}
		})
	}
}

func TestRunIsNotReentrant(t *testing.T) {
	m, router, _ := newTestManager()
	cfg := Config{Enabled: true, Threshold: uint256.NewInt(1), Pair: pairAddr}
	var nestedErr error
	var nestedTrigger bool
	router.onSwap = func(ctx context.Context) {
		nestedTrigger = m.ShouldTrigger(cfg, uint256.NewInt(1000), common.HexToAddress("0x77"))
		_, nestedErr = m.Run(ctx, uint256.NewInt(1000), ownerAddr)
	}
	if _, err := m.Run(context.Background(), uint256.NewInt(100), ownerAddr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if nestedTrigger {
		t.Fatalf("expected nested trigger check to be false while swapping")
	}
	if !errors.Is(nestedErr, ErrReentered) {
		t.Fatalf("expected nested run to be rejected, got %v", nestedErr)
	}
}
