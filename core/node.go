package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reflexledger/config"
	"reflexledger/core/events"
	"reflexledger/core/state"
	"reflexledger/integrations/archive"
	"reflexledger/integrations/exports"
	"reflexledger/integrations/webhooks"
	"reflexledger/native/amm"
	"reflexledger/native/token"
	"reflexledger/observability/logging"
	telemetry "reflexledger/observability/otel"
	"reflexledger/storage"
)

var (
	// ErrNoRouter is returned by trade helpers when the node runs without the
	// built-in AMM.
	ErrNoRouter = errors.New("node: amm disabled")
	// ErrNoArchive is returned by event queries when no archive is configured.
	ErrNoArchive = errors.New("node: event archive disabled")
)

// Export formats accepted by ExportEvents.
const (
	ExportCSV   = "csv"
	ExportJSONL = "jsonl"
)

// Node is the central controller, wiring all components together.
type Node struct {
	cfg    *config.Config
	logger *slog.Logger
	tracer trace.Tracer

	db       storage.Database
	state    *state.Manager
	router   *amm.Router
	token    *token.Token
	archive  *archive.Archive
	webhooks *webhooks.Dispatcher

	shutdownTelemetry telemetry.Shutdown
	closeOnce         sync.Once
	closeErr          error
}

// Option customises a node before it opens its components.
type Option func(*nodeOptions)

type nodeOptions struct {
	logger *slog.Logger
	clock  func() time.Time
}

// WithLogger replaces the logger built from the logging section.
func WithLogger(logger *slog.Logger) Option {
	return func(o *nodeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source of the token, router and archive.
func WithClock(now func() time.Time) Option {
	return func(o *nodeOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// NewNode opens storage and the token described by cfg, creating the token on
// first start.
func NewNode(ctx context.Context, cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("node: config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := nodeOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger
	if logger == nil {
		logger = logging.Setup(logging.Options{
			Service:    cfg.Service,
			Env:        cfg.Logging.Env,
			Level:      cfg.Logging.Level,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		})
	}

	n := &Node{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "node")),
		tracer: otel.Tracer("reflexledger/core"),
	}
	if err := n.open(ctx, logger, options.clock); err != nil {
		if closeErr := n.Close(context.Background()); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}
	return n, nil
}

func (n *Node) open(ctx context.Context, logger *slog.Logger, clock func() time.Time) error {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: n.cfg.Service,
		Environment: n.cfg.Logging.Env,
		Endpoint:    n.cfg.Telemetry.Endpoint,
		Insecure:    n.cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(n.cfg.Telemetry.Headers),
		Traces:      n.cfg.Telemetry.Traces,
		Metrics:     n.cfg.Telemetry.Metrics,
		SampleRatio: n.cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("node: telemetry: %w", err)
	}
	n.shutdownTelemetry = shutdown

	switch n.cfg.Storage.Backend {
	case config.BackendLevelDB:
		db, err := storage.NewLevelDB(n.cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("node: open leveldb: %w", err)
		}
		n.db = db
	default:
		n.db = storage.NewMemDB()
	}
	n.state = state.NewManager(n.db)

	var emitters events.Multi
	if n.cfg.Archive.Path != "" {
		arch, err := archive.Open(n.cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("node: open archive: %w", err)
		}
		arch.SetLogger(logger)
		arch.SetClock(clock)
		n.archive = arch
		emitters = append(emitters, arch)
	}
	if n.cfg.Webhook.Endpoint != "" {
		secret, err := n.cfg.WebhookSecret()
		if err != nil {
			return err
		}
		dispatcher, err := webhooks.NewDispatcher(n.cfg.Webhook.Endpoint, secret,
			webhooks.WithTopics(n.cfg.Webhook.Topics...),
			webhooks.WithRateLimit(n.cfg.Webhook.RatePerSecond, n.cfg.Webhook.Burst),
			webhooks.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("node: webhooks: %w", err)
		}
		n.webhooks = dispatcher
		emitters = append(emitters, dispatcher)
	}

	deps := token.Deps{
		State:   n.state,
		Emitter: emitters,
		Logger:  logger,
		Clock:   clock,
	}
	if n.cfg.AMM.Enabled {
		n.router = amm.NewRouter(n.cfg.RouterAddress(), n.cfg.WrappedAddress(), n.state)
		n.router.SetClock(clock)
		deps.Router = n.router
	}

	params, err := n.cfg.TokenParams()
	if err != nil {
		return err
	}
	tok, err := token.New(params, deps)
	if err != nil {
		return fmt.Errorf("node: open token: %w", err)
	}
	n.token = tok
	if n.router != nil {
		n.router.RegisterToken(tok.Tradeable())
	}

	owner, err := tok.Owner()
	if err != nil {
		return err
	}
	n.logger.Info("token ready",
		slog.String("address", tok.Address().Hex()),
		slog.String("symbol", tok.Symbol()),
		slog.String("owner", owner.Hex()),
		slog.String("storage", n.cfg.Storage.Backend),
		slog.Bool("amm", n.router != nil))
	return nil
}

// Close stops delivery, flushes telemetry and releases storage. It is safe to
// call more than once.
func (n *Node) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		var errs []error
		if n.webhooks != nil {
			n.webhooks.Close()
		}
		if n.archive != nil {
			errs = append(errs, n.archive.Close())
		}
		if n.db != nil {
			errs = append(errs, n.db.Close())
		}
		if n.shutdownTelemetry != nil {
			errs = append(errs, n.shutdownTelemetry(ctx))
		}
		n.closeErr = errors.Join(errs...)
	})
	return n.closeErr
}

func (n *Node) Token() *token.Token { return n.token }

// Router returns the built-in AMM, or nil when it is disabled.
func (n *Node) Router() *amm.Router { return n.router }

func (n *Node) Config() *config.Config { return n.cfg }

// State exposes the journaled state, for seeding base-currency balances.
func (n *Node) State() *state.Manager { return n.state }

// trade runs fn as one token operation under a span named after op.
func (n *Node) trade(ctx context.Context, op string, from common.Address, fn func(ctx context.Context) error) error {
	if n.router == nil {
		return ErrNoRouter
	}
	ctx, span := n.tracer.Start(ctx, "node."+op, trace.WithAttributes(
		attribute.String("trader", from.Hex()),
	))
	defer span.End()
	err := n.token.Execute(ctx, op, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// AddLiquidity deposits tokens and base currency held by from into the pool
// and credits the pool shares to from.
func (n *Node) AddLiquidity(ctx context.Context, from common.Address, tokenAmount, baseAmount *uint256.Int) (*uint256.Int, error) {
	var shares *uint256.Int
	err := n.trade(ctx, "addLiquidity", from, func(ctx context.Context) error {
		res, err := n.router.AddLiquidity(ctx, from, n.token.Address(), tokenAmount, baseAmount, nil, nil, from, time.Time{})
		if err != nil {
			return err
		}
		shares = res.Liquidity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// Buy spends baseIn of from's base currency on tokens delivered to from.
// Pair transfers carry the swap fee profile.
func (n *Node) Buy(ctx context.Context, from common.Address, baseIn, minOut *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.trade(ctx, "buy", from, func(ctx context.Context) error {
		var err error
		out, err = n.router.SwapExactBaseForTokens(ctx, from, baseIn, minOut, n.token.Address(), from, time.Time{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sell swaps amountIn of from's tokens for base currency paid to from.
func (n *Node) Sell(ctx context.Context, from common.Address, amountIn, minOut *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.trade(ctx, "sell", from, func(ctx context.Context) error {
		var err error
		path := []common.Address{n.token.Address(), n.router.WrappedBase()}
		out, err = n.router.SwapExactTokensForBase(ctx, from, amountIn, minOut, path, from, time.Time{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists archived events matching q.
func (n *Node) Events(ctx context.Context, q archive.Query) ([]archive.Record, error) {
	if n.archive == nil {
		return nil, ErrNoArchive
	}
	return n.archive.List(ctx, q)
}

// ExportEvents renders archived events matching q in format and returns the
// document with its SHA-256 checksum.
func (n *Node) ExportEvents(ctx context.Context, q archive.Query, format string) ([]byte, string, error) {
	records, err := n.Events(ctx, q)
	if err != nil {
		return nil, "", err
	}
	switch format {
	case ExportCSV:
		return exports.EventsCSV(records)
	case ExportJSONL:
		return exports.EventsJSONL(records)
	default:
		return nil, "", fmt.Errorf("node: unknown export format %q", format)
	}
}
