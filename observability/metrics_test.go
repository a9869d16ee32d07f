package observability

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestLedgerMetricsRecordOperations(t *testing.T) {
	m := Ledger()
	before := value(t, m.rejections.WithLabelValues("transfer", "invariant"))
	m.ObserveOperation("transfer", "invariant", time.Millisecond)
	m.ObserveOperation("transfer", "none", time.Millisecond)
	if got := value(t, m.rejections.WithLabelValues("transfer", "invariant")); got != before+1 {
		t.Fatalf("expected rejection counter to increase by one, got %v -> %v", before, got)
	}
	if got := value(t, m.operations.WithLabelValues("transfer", "success")); got < 1 {
		t.Fatalf("expected success to be recorded, got %v", got)
	}
}

func TestTokensToFloat(t *testing.T) {
	amount := new(uint256.Int).Mul(uint256.NewInt(15), uint256.NewInt(100_000_000_000_000_000))
	if got := tokensToFloat(amount, 18); got != 1.5 {
		t.Fatalf("expected 1.5 tokens, got %v", got)
	}
	if got := tokensToFloat(nil, 18); got != 0 {
		t.Fatalf("expected zero for nil, got %v", got)
	}
}

func TestSetRateUsesBitLength(t *testing.T) {
	m := Ledger()
	m.SetRate(uint256.NewInt(1 << 10))
	if got := value(t, m.rate); got != 10 {
		t.Fatalf("expected log2 rate 10, got %v", got)
	}
}

func TestRecordTransferAndFees(t *testing.T) {
	m := Ledger()
	beforeTransfers := value(t, m.transfers.WithLabelValues("standard"))
	beforeReflected := value(t, m.reflected)
	m.RecordTransfer("standard")
	m.RecordReflected(uint256.NewInt(2_000_000_000), 9)
	m.RecordLiquidityTaken(nil, 9)
	if got := value(t, m.transfers.WithLabelValues("standard")); got != beforeTransfers+1 {
		t.Fatalf("expected one more standard transfer, got %v -> %v", beforeTransfers, got)
	}
	if got := value(t, m.reflected); got != beforeReflected+2 {
		t.Fatalf("expected two reflected tokens, got %v -> %v", beforeReflected, got)
	}
}

func TestRecordEventNormalizesType(t *testing.T) {
	m := Events()
	before := value(t, m.emitted.WithLabelValues("unknown"))
	m.RecordEvent("  ")
	if got := value(t, m.emitted.WithLabelValues("unknown")); got != before+1 {
		t.Fatalf("expected blank type to count as unknown, got %v -> %v", before, got)
	}
}
