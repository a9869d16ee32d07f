package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"reflexledger/core/events"
	"reflexledger/core/state"
	nativecommon "reflexledger/native/common"
	"reflexledger/native/exclusion"
	"reflexledger/native/fees"
	"reflexledger/native/liquidity"
	"reflexledger/native/ownership"
	"reflexledger/native/reflection"
	"reflexledger/observability"
)

const (
	DefaultName     = "Arcane Token"
	DefaultSymbol   = "Arcane"
	DefaultDecimals = 18
)

// DefaultTotalSupply returns 600,000,000 whole tokens at 18 decimals.
func DefaultTotalSupply() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(600_000_000), unit(DefaultDecimals))
}

// DefaultThreshold returns 300,000 whole tokens at 18 decimals.
func DefaultThreshold() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(300_000), unit(DefaultDecimals))
}

func unit(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// Params describe a token at creation. They are ignored when the token
// already exists in state.
type Params struct {
	Address               common.Address
	Owner                 common.Address
	Name                  string
	Symbol                string
	Decimals              uint8
	TotalSupply           *uint256.Int
	Fees                  fees.Schedule
	MaxTxPercent          uint64
	Threshold             *uint256.Int
	SwapAndLiquifyEnabled bool
}

// DefaultParams returns the stock token owned by owner at address.
func DefaultParams(address, owner common.Address) Params {
	return Params{
		Address:               address,
		Owner:                 owner,
		Name:                  DefaultName,
		Symbol:                DefaultSymbol,
		Decimals:              DefaultDecimals,
		TotalSupply:           DefaultTotalSupply(),
		Fees:                  fees.DefaultSchedule(),
		MaxTxPercent:          fees.MaxPercent,
		Threshold:             DefaultThreshold(),
		SwapAndLiquifyEnabled: true,
	}
}

// Deps are the collaborators of a token.
type Deps struct {
	State   *state.Manager
	Router  liquidity.Router
	Emitter events.Emitter
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Token is the fee-bearing reflection token. Every mutating call is atomic:
// state changes and events of a failed call are discarded, those of a
// successful outermost call are committed to storage and then emitted.
type Token struct {
	mu sync.Mutex

	address common.Address
	meta    metadata

	state     *state.Manager
	registry  *exclusion.Registry
	ledger    *reflection.Ledger
	timelock  *ownership.Timelock
	liquidity *liquidity.Manager
	assets    map[common.Address]Asset

	pending events.Buffer
	emitter events.Emitter
	logger  *slog.Logger
}

type operationKey struct{}

// New opens the token at params.Address, creating and minting it on first
// use.
func New(params Params, deps Deps) (*Token, error) {
	if deps.State == nil {
		return nil, errNilState
	}
	if params.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: token address", ErrZeroAddress)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	t := &Token{
		address: params.Address,
		state:   deps.State,
		assets:  make(map[common.Address]Asset),
		emitter: emitter,
		logger:  logger.With(slog.String("component", "token")),
	}
	t.registry = exclusion.NewRegistry(deps.State)
	t.ledger = reflection.NewLedger(deps.State, t.registry, params.Address)
	t.ledger.SetEmitter(&t.pending)
	t.timelock = ownership.NewTimelock(deps.State)
	t.timelock.SetEmitter(&t.pending)
	t.timelock.SetClock(deps.Clock)
	t.liquidity = liquidity.NewManager(params.Address, deps.Router, deps.State)
	t.liquidity.SetEmitter(&t.pending)
	t.liquidity.SetLogger(logger)
	t.liquidity.SetClock(deps.Clock)

	minted, err := t.ledger.Minted()
	if err != nil {
		return nil, err
	}
	if !minted {
		if err := t.atomically(context.Background(), "create", func(context.Context) error {
			return t.create(params, deps.Router)
		}); err != nil {
			return nil, err
		}
		return t, nil
	}

	meta, ok, err := t.loadMetadata()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token: metadata missing for minted token %s", params.Address.Hex())
	}
	t.meta = meta
	current, err := t.loadSettings()
	if err != nil {
		return nil, err
	}
	if deps.Router != nil && deps.Router.Address() != current.Router {
		t.logger.Warn("router differs from the configured router",
			slog.String("configured", current.Router.Hex()),
			slog.String("supplied", deps.Router.Address().Hex()))
	}
	return t, nil
}

func (t *Token) create(params Params, router liquidity.Router) error {
	if params.TotalSupply == nil {
		return fmt.Errorf("%w: total supply", ErrNilAmount)
	}
	if err := params.Fees.Validate(); err != nil {
		return err
	}
	maxTx, err := fees.MaxTxAmount(params.TotalSupply, params.MaxTxPercent)
	if err != nil {
		return err
	}
	threshold := params.Threshold
	if threshold == nil {
		threshold = new(uint256.Int)
	}
	if err := t.timelock.Init(params.Owner); err != nil {
		return err
	}
	if err := t.ledger.Mint(params.Owner, params.TotalSupply); err != nil {
		return err
	}
	for _, addr := range []common.Address{params.Owner, params.Address} {
		if err := t.registry.SetExcludedFromFee(addr, true); err != nil {
			return err
		}
	}
	t.meta = metadata{
		Name:     params.Name,
		Symbol:   params.Symbol,
		Decimals: params.Decimals,
		Address:  params.Address,
	}
	if err := t.state.KVPut(metadataKey, &t.meta); err != nil {
		return err
	}
	s := settings{
		MaxTxPercent: params.MaxTxPercent,
		MaxTxAmount:  maxTx,
		Threshold:    new(uint256.Int).Set(threshold),
		Enabled:      params.SwapAndLiquifyEnabled,
	}
	s.setSchedule(params.Fees)
	if router != nil {
		pair, err := router.PairFor(params.Address)
		if err != nil {
			return fmt.Errorf("%w: pair: %w", liquidity.ErrExternalCall, err)
		}
		s.Router = router.Address()
		s.Pair = pair
	}
	if err := t.putSettings(s); err != nil {
		return err
	}
	t.pending.Emit(events.Transfer{
		To:                params.Owner,
		Value:             new(uint256.Int).Set(params.TotalSupply),
		Gross:             new(uint256.Int).Set(params.TotalSupply),
		ReflectedAmount:   new(uint256.Int),
		ReflectedTransfer: new(uint256.Int),
	})
	return nil
}

func (t *Token) nested(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(operationKey{}).(*Token)
	return owner == t
}

// atomically runs fn as one all-or-nothing operation. Calls made from inside
// fn through ctx, such as the router transferring tokens back into this
// token, nest under the operation already holding the lock.
func (t *Token) atomically(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.nested(ctx) {
		return t.inner(ctx, fn)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	logger := t.logger.With(slog.String("op", uuid.NewString()), slog.String("operation", op))
	ctx = context.WithValue(ctx, operationKey{}, t)
	t.pending.Drain()

	snap := t.state.Snapshot()
	err := t.inner(ctx, fn)
	if err == nil {
		if err = t.state.Commit(); err != nil {
			if revertErr := t.state.RevertToSnapshot(snap); revertErr != nil {
				err = errors.Join(err, revertErr)
			}
		}
	} else {
		t.state.DiscardSnapshot(snap)
	}
	if err != nil {
		t.pending.Drain()
		class := nativecommon.ClassLabel(err)
		observability.Ledger().ObserveOperation(op, class, time.Since(start))
		logger.Warn("operation rejected", slog.String("class", class), slog.Any("error", err))
		return err
	}

	committed := t.pending.Drain()
	for _, e := range committed {
		t.record(e)
		t.emitter.Emit(e)
	}
	if rate, rateErr := t.ledger.Rate(); rateErr == nil {
		observability.Ledger().SetRate(rate)
	}
	observability.Ledger().ObserveOperation(op, "none", time.Since(start))
	logger.Debug("operation committed", slog.Int("events", len(committed)))
	return nil
}

// Execute runs fn as one operation of the token. Calls fn makes back into the
// token through ctx, such as a router trade moving this token, commit or roll
// back together with everything else fn changed in state.
func (t *Token) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return t.atomically(ctx, op, fn)
}

// inner runs fn under its own snapshot and drops the events it buffered when
// it fails.
func (t *Token) inner(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.state.Snapshot()
	mark := t.pending.Len()
	err := fn(ctx)
	if err != nil {
		t.pending.Truncate(mark)
		if revertErr := t.state.RevertToSnapshot(snap); revertErr != nil {
			return errors.Join(err, revertErr)
		}
		return err
	}
	t.state.DiscardSnapshot(snap)
	return nil
}

func (t *Token) record(e events.Event) {
	metrics := observability.Ledger()
	observability.Events().RecordEvent(e.EventType())
	switch ev := e.(type) {
	case events.TransferStandard:
		metrics.RecordTransfer(string(reflection.CaseStandard))
	case events.TransferFromExcluded:
		metrics.RecordTransfer(string(reflection.CaseFromExcluded))
	case events.TransferToExcluded:
		metrics.RecordTransfer(string(reflection.CaseToExcluded))
	case events.TransferFromSender:
		metrics.RecordTransfer(string(reflection.CaseBothExcluded))
	case events.ReflectFee:
		metrics.RecordReflected(ev.TokenFee, t.meta.Decimals)
	case events.TakeLiquidity:
		metrics.RecordLiquidityTaken(ev.TokenLiquidity, t.meta.Decimals)
	}
}

// view runs a read under the lock unless ctx belongs to the operation already
// holding it.
func (t *Token) view(ctx context.Context, fn func() error) error {
	if !t.nested(ctx) {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	return fn()
}

func (t *Token) read(fn func() error) error {
	return t.view(context.Background(), fn)
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Name() string { return t.meta.Name }
func (t *Token) Symbol() string { return t.meta.Symbol }
func (t *Token) Decimals() uint8 { return t.meta.Decimals }

// TotalSupply returns the fixed token-space supply.
func (t *Token) TotalSupply() (*uint256.Int, error) {
	var out *uint256.Int
	err := t.read(func() error {
		supply, err := t.ledger.Supply()
		if err != nil {
			return err
		}
		out = supply.Token
		return nil
	})
	return out, err
}

// TotalFees returns the cumulative token-space fees reflected to holders.
func (t *Token) TotalFees() (*uint256.Int, error) {
	var out *uint256.Int
	err := t.read(func() error {
		supply, err := t.ledger.Supply()
		if err != nil {
			return err
		}
		out = supply.Fees
		return nil
	})
	return out, err
}

// Rate returns the current reflected-per-token rate.
func (t *Token) Rate() (*uint256.Int, error) {
	var out *uint256.Int
	err := t.read(func() (err error) {
		out, err = t.ledger.Rate()
		return err
	})
	return out, err
}

// BalanceOf returns the token-space balance of addr.
func (t *Token) BalanceOf(addr common.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := t.read(func() (err error) {
		out, err = t.ledger.BalanceOf(addr)
		return err
	})
	return out, err
}

// ReflectionFromToken converts tAmount into reflected space; with
// deductTransferFee the transfer profile's fees are taken off first.
func (t *Token) ReflectionFromToken(tAmount *uint256.Int, deductTransferFee bool) (*uint256.Int, error) {
	if tAmount == nil {
		return nil, ErrNilAmount
	}
	var out *uint256.Int
	err := t.read(func() error {
		s, err := t.loadSettings()
		if err != nil {
			return err
		}
		out, err = t.ledger.ReflectionFromToken(tAmount, deductTransferFee, s.schedule().Transfer)
		return err
	})
	return out, err
}

// TokenFromReflection converts rAmount into token space at the current rate.
func (t *Token) TokenFromReflection(rAmount *uint256.Int) (*uint256.Int, error) {
	if rAmount == nil {
		return nil, ErrNilAmount
	}
	var out *uint256.Int
	err := t.read(func() (err error) {
		out, err = t.ledger.TokenFromReflection(rAmount)
		return err
	})
	return out, err
}

func (t *Token) IsExcludedFromFee(addr common.Address) (bool, error) {
	var out bool
	err := t.read(func() (err error) {
		out, err = t.registry.IsExcludedFromFee(addr)
		return err
	})
	return out, err
}

func (t *Token) IsExcludedFromReward(addr common.Address) (bool, error) {
	var out bool
	err := t.read(func() (err error) {
		out, err = t.ledger.IsExcludedFromReward(addr)
		return err
	})
	return out, err
}

// RewardExcluded lists reward-excluded accounts in registry order.
func (t *Token) RewardExcluded() ([]common.Address, error) {
	var out []common.Address
	err := t.read(func() (err error) {
		out, err = t.registry.RewardExcluded()
		return err
	})
	return out, err
}

func (t *Token) currentSettings() (settings, error) {
	var out settings
	err := t.read(func() (err error) {
		out, err = t.loadSettings()
		return err
	})
	return out, err
}

// TransferFee returns the profile applied to wallet-to-wallet transfers.
func (t *Token) TransferFee() (fees.Profile, error) {
	s, err := t.currentSettings()
	return s.schedule().Transfer, err
}

// SwapFee returns the profile applied to transfers touching the pair.
func (t *Token) SwapFee() (fees.Profile, error) {
	s, err := t.currentSettings()
	return s.schedule().Swap, err
}

func (t *Token) MaxTxAmount() (*uint256.Int, error) {
	s, err := t.currentSettings()
	return s.MaxTxAmount, err
}

func (t *Token) Threshold() (*uint256.Int, error) {
	s, err := t.currentSettings()
	return s.Threshold, err
}

func (t *Token) SwapAndLiquifyEnabled() (bool, error) {
	s, err := t.currentSettings()
	return s.Enabled, err
}

// Router returns the address of the configured router.
func (t *Token) Router() (common.Address, error) {
	s, err := t.currentSettings()
	return s.Router, err
}

// Pair returns the liquidity pair derived from the router.
func (t *Token) Pair() (common.Address, error) {
	s, err := t.currentSettings()
	return s.Pair, err
}

// Owner returns the owner, which is the zero address while ownership is
// locked or after it has been renounced.
func (t *Token) Owner() (common.Address, error) {
	var out common.Address
	err := t.read(func() (err error) {
		out, err = t.timelock.Owner()
		return err
	})
	return out, err
}

func (t *Token) UnlockTime() (int64, error) {
	var out int64
	err := t.read(func() (err error) {
		out, err = t.timelock.UnlockTime()
		return err
	})
	return out, err
}

// InSwap reports whether swap and liquify is in flight.
func (t *Token) InSwap() bool {
	var out bool
	_ = t.read(func() error {
		out = t.liquidity.InSwap()
		return nil
	})
	return out
}

// BaseBalance returns the base currency held by the token contract.
func (t *Token) BaseBalance() (*uint256.Int, error) {
	var out *uint256.Int
	err := t.read(func() (err error) {
		out, err = t.state.BaseBalance(t.address)
		return err
	})
	return out, err
}
