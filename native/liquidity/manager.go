package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"reflexledger/core/events"
	nativecommon "reflexledger/native/common"
	"reflexledger/observability"
)

const instrumentationName = "reflexledger/native/liquidity"

// DefaultDeadline is the validity window passed to router calls.
const DefaultDeadline = 5 * time.Minute

var (
	// ErrExternalCall wraps every router failure.
	ErrExternalCall = fmt.Errorf("%w: liquidity: router call failed", nativecommon.ErrExternalCallFailure)
	// ErrReentered is returned when Run is invoked while a run is in flight.
	ErrReentered = fmt.Errorf("%w: liquidity: swap and liquify already running", nativecommon.ErrStateConflict)

	errNoRouter = errors.New("liquidity: router not configured")
)

// State is the workflow state.
type State string

const (
	StateIdle     State = "idle"
	StateSwapping State = "swapping"
)

// Config is the owner-controlled part of the liquidity state.
type Config struct {
	Enabled   bool
	Threshold *uint256.Int
	Pair      common.Address
}

// Result summarises one completed run.
type Result struct {
	TokensSwapped       *uint256.Int
	BaseReceived        *uint256.Int
	TokensIntoLiquidity *uint256.Int
	Added               AddLiquidityResult
}

// Manager runs swap-and-liquify: half of the token contract's own balance is
// sold for base currency and the other half is paired with the proceeds in
// the pool. The manager's guard keeps the workflow from re-entering itself
// through transfers the router makes on the token.
type Manager struct {
	token   common.Address
	router  Router
	base    BaseLedger
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
	calls   metric.Int64Counter
	now     func() time.Time

	inSwap bool
}

// NewManager returns an idle manager for the token at address token.
func NewManager(token common.Address, router Router, base BaseLedger) *Manager {
	m := &Manager{
		token:   token,
		router:  router,
		base:    base,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(instrumentationName),
		now:     time.Now,
	}
	calls, err := otel.Meter(instrumentationName).Int64Counter("liquidity.router.calls",
		metric.WithDescription("Router calls made by swap and liquify, by call and outcome."))
	if err == nil {
		m.calls = calls
	}
	return m
}

// SetRouter swaps the AMM collaborator.
func (m *Manager) SetRouter(router Router) { m.router = router }

// Router returns the configured AMM collaborator.
func (m *Manager) Router() Router { return m.router }

// SetEmitter configures the sink for workflow events.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	m.emitter = emitter
}

// SetLogger overrides the logger.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetClock overrides the clock used to derive router deadlines.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// InSwap reports whether the workflow is in flight.
func (m *Manager) InSwap() bool { return m.inSwap }

// State returns the workflow state.
func (m *Manager) State() State {
	if m.inSwap {
		return StateSwapping
	}
	return StateIdle
}

// ShouldTrigger reports whether a transfer from sender leaving the token
// contract with contractBalance should start the workflow.
func (m *Manager) ShouldTrigger(cfg Config, contractBalance *uint256.Int, sender common.Address) bool {
	if !cfg.Enabled || m.inSwap || contractBalance == nil {
		return false
	}
	if cfg.Pair != (common.Address{}) && sender == cfg.Pair {
		return false
	}
	threshold := cfg.Threshold
	if threshold == nil {
		threshold = new(uint256.Int)
	}
	return !contractBalance.Lt(threshold)
}

// Run executes the workflow over contractBalance, crediting pool shares to
// lpRecipient. The guard is released on every return path.
func (m *Manager) Run(ctx context.Context, contractBalance *uint256.Int, lpRecipient common.Address) (result Result, err error) {
	if m.inSwap {
		return Result{}, ErrReentered
	}
	if m.router == nil || m.base == nil {
		return Result{}, errNoRouter
	}
	m.inSwap = true
	defer func() {
		m.inSwap = false
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		observability.Ledger().RecordSwapAndLiquify(outcome)
	}()

	ctx, span := m.tracer.Start(ctx, "liquidity.swapAndLiquify",
		trace.WithAttributes(attribute.String("liquidity.balance", contractBalance.Dec())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	half := new(uint256.Int).Rsh(contractBalance, 1)
	otherHalf := new(uint256.Int).Sub(contractBalance, half)
	deadline := m.now().Add(DefaultDeadline)

	initial, err := m.base.BaseBalance(m.token)
	if err != nil {
		return Result{}, err
	}
	if err := m.swap(ctx, half, deadline); err != nil {
		return Result{}, err
	}
	after, err := m.base.BaseBalance(m.token)
	if err != nil {
		return Result{}, err
	}
	received := new(uint256.Int)
	if after.Gt(initial) {
		received.Sub(after, initial)
	}

	added, err := m.addLiquidity(ctx, otherHalf, received, lpRecipient, deadline)
	if err != nil {
		return Result{}, err
	}

	result = Result{
		TokensSwapped:       half,
		BaseReceived:        received,
		TokensIntoLiquidity: otherHalf,
		Added:               added,
	}
	m.emitter.Emit(events.SwapAndLiquify{
		TokensSwapped:       new(uint256.Int).Set(half),
		BaseReceived:        new(uint256.Int).Set(received),
		TokensIntoLiquidity: new(uint256.Int).Set(otherHalf),
		LiquidityMinted:     amountOrZero(added.Liquidity),
		LiquidityRecipient:  lpRecipient,
	})
	m.logger.Debug("swap and liquify completed",
		slog.String("component", "liquidity"),
		slog.String("swapped", half.Dec()),
		slog.String("baseReceived", received.Dec()),
		slog.String("recipient", lpRecipient.Hex()))
	return result, nil
}

func (m *Manager) swap(ctx context.Context, amount *uint256.Int, deadline time.Time) (err error) {
	ctx, span := m.tracer.Start(ctx, "liquidity.router.swap")
	defer func() { m.finishCall(ctx, span, "swap", err) }()

	path := []common.Address{m.token, m.router.WrappedBase()}
	if _, err := m.router.SwapExactTokensForBase(ctx, m.token, amount, new(uint256.Int), path, m.token, deadline); err != nil {
		return fmt.Errorf("%w: swap: %w", ErrExternalCall, err)
	}
	return nil
}

func (m *Manager) addLiquidity(ctx context.Context, tokenAmount, baseAmount *uint256.Int, recipient common.Address, deadline time.Time) (result AddLiquidityResult, err error) {
	ctx, span := m.tracer.Start(ctx, "liquidity.router.addLiquidity")
	defer func() { m.finishCall(ctx, span, "add_liquidity", err) }()

	result, err = m.router.AddLiquidity(ctx, m.token, m.token, tokenAmount, baseAmount, new(uint256.Int), new(uint256.Int), recipient, deadline)
	if err != nil {
		return AddLiquidityResult{}, fmt.Errorf("%w: add liquidity: %w", ErrExternalCall, err)
	}
	return result, nil
}

func (m *Manager) finishCall(ctx context.Context, span trace.Span, call string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("call", call),
			attribute.String("outcome", outcome)))
	}
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
