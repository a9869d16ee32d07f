package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	transfers  *prometheus.CounterVec
	reflected  prometheus.Counter
	liquidity  prometheus.Counter
	swaps      *prometheus.CounterVec
	rate       prometheus.Gauge
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

// Ledger returns the lazily-initialised metrics registry for token ledger
// operations.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of token operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "rejections_total",
				Help:      "Count of rejected token operations segmented by error class.",
			}, []string{"operation", "class"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for token operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "transfers_total",
				Help:      "Count of applied transfers segmented by reward-exclusion case.",
			}, []string{"case"}),
			reflected: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "fees_reflected_tokens_total",
				Help:      "Whole tokens reflected to holders.",
			}),
			liquidity: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "liquidity_taken_tokens_total",
				Help:      "Whole tokens retained by the token contract for liquidity.",
			}),
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reflex",
				Subsystem: "liquidity",
				Name:      "swap_and_liquify_total",
				Help:      "Count of swap-and-liquify runs segmented by outcome.",
			}, []string{"outcome"}),
			rate: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "reflex",
				Subsystem: "ledger",
				Name:      "rate_log2",
				Help:      "Base-2 logarithm of the current reflected-per-token rate.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.rejections,
			ledgerRegistry.latency,
			ledgerRegistry.transfers,
			ledgerRegistry.reflected,
			ledgerRegistry.liquidity,
			ledgerRegistry.swaps,
			ledgerRegistry.rate,
		)
	})
	return ledgerRegistry
}

func normalizeLabel(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// ObserveOperation records the outcome and latency of a token operation. class
// is the error class label, or "none" on success.
func (m *ledgerMetrics) ObserveOperation(operation, class string, duration time.Duration) {
	if m == nil {
		return
	}
	operation = normalizeLabel(operation, "unknown")
	outcome := "success"
	if class != "" && class != "none" {
		outcome = "error"
		m.rejections.WithLabelValues(operation, class).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransfer counts an applied transfer by reward-exclusion case.
func (m *ledgerMetrics) RecordTransfer(kind string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(kind, "unknown")).Inc()
}

// RecordReflected adds a reflected fee, given in base units with the supplied
// decimals.
func (m *ledgerMetrics) RecordReflected(amount *uint256.Int, decimals uint8) {
	if m == nil {
		return
	}
	if v := tokensToFloat(amount, decimals); v > 0 {
		m.reflected.Add(v)
	}
}

// RecordLiquidityTaken adds a liquidity portion retained by the token.
func (m *ledgerMetrics) RecordLiquidityTaken(amount *uint256.Int, decimals uint8) {
	if m == nil {
		return
	}
	if v := tokensToFloat(amount, decimals); v > 0 {
		m.liquidity.Add(v)
	}
}

// RecordSwapAndLiquify counts a liquidity workflow run.
func (m *ledgerMetrics) RecordSwapAndLiquify(outcome string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(normalizeLabel(outcome, "unknown")).Inc()
}

// SetRate publishes the current rate.
func (m *ledgerMetrics) SetRate(rate *uint256.Int) {
	if m == nil || rate == nil || rate.IsZero() {
		return
	}
	m.rate.Set(float64(rate.BitLen() - 1))
}

func tokensToFloat(value *uint256.Int, decimals uint8) float64 {
	if value == nil || value.IsZero() {
		return 0
	}
	scaled := new(big.Float).SetInt(value.ToBig())
	if decimals > 0 {
		unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		scaled.Quo(scaled, unit)
	}
	floatVal, _ := scaled.Float64()
	if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
		return 0
	}
	return floatVal
}
