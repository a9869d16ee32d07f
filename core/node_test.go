package core

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"reflexledger/config"
	"reflexledger/core/events"
	"reflexledger/integrations/archive"
)

var (
	ownerAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Token.Owner = ownerAddr.Hex()
	return cfg
}

func openNode(t *testing.T, cfg *config.Config) *Node {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	clock := func() time.Time { return time.Unix(1_700_000_000, 0) }
	n, err := NewNode(context.Background(), cfg, WithLogger(logger), WithClock(clock))
	if err != nil {
		t.Fatalf("open node: %v", err)
	}
	return n
}

func TestNodeReopensLevelDB(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Storage = config.Storage{Backend: config.BackendLevelDB, Path: filepath.Join(dir, "db")}
	cfg.Archive.Path = filepath.Join(dir, "events.db")
	ctx := context.Background()

	n := openNode(t, cfg)
	tokenAddr := n.Token().Address()
	require.NoError(t, n.Token().Transfer(ctx, ownerAddr, alice, ether(1_000)))
	require.NoError(t, n.Token().SetThreshold(ctx, ownerAddr, ether(42)))
	require.NoError(t, n.Close(ctx))
	require.NoError(t, n.Close(ctx))

	// Creation parameters are ignored once the token exists.
	cfg.Token.Threshold = "7"
	reopened := openNode(t, cfg)
	defer reopened.Close(ctx)

	require.Equal(t, tokenAddr, reopened.Token().Address())
	balance, err := reopened.Token().BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, ether(1_000), balance)
	threshold, err := reopened.Token().Threshold()
	require.NoError(t, err)
	require.Equal(t, ether(42), threshold)
	owner, err := reopened.Token().Owner()
	require.NoError(t, err)
	require.Equal(t, ownerAddr, owner)

	transfers, err := reopened.Events(ctx, archive.Query{Type: events.TypeTransfer})
	require.NoError(t, err)
	if len(transfers) != 2 {
		t.Fatalf("expected mint and one transfer in the archive, got %d", len(transfers))
	}
	require.Equal(t, alice.Hex(), transfers[1].Attributes["to"])
}

func TestNodeTrades(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	n := openNode(t, cfg)
	defer n.Close(ctx)

	require.NoError(t, n.State().SetBaseBalance(ownerAddr, ether(100)))
	shares, err := n.AddLiquidity(ctx, ownerAddr, ether(1_000_000), ether(100))
	require.NoError(t, err)
	require.False(t, shares.IsZero())

	require.NoError(t, n.State().SetBaseBalance(bob, ether(1)))
	bought, err := n.Buy(ctx, bob, ether(1), nil)
	require.NoError(t, err)
	require.False(t, bought.IsZero())
	held, err := n.Token().BalanceOf(bob)
	require.NoError(t, err)
	require.False(t, held.IsZero())
	if !held.Lt(bought) {
		t.Fatalf("swap fee should reduce what bob holds: bought %s holds %s", bought.Dec(), held.Dec())
	}

	half := new(uint256.Int).Rsh(held, 1)
	base, err := n.Sell(ctx, bob, half, nil)
	require.NoError(t, err)
	require.False(t, base.IsZero())
	bobBase, err := n.State().BaseBalance(bob)
	require.NoError(t, err)
	require.Equal(t, base, bobBase)

	// Slippage failures leave nothing behind.
	before, err := n.Token().BalanceOf(bob)
	require.NoError(t, err)
	_, err = n.Sell(ctx, bob, half, ether(1_000))
	require.Error(t, err)
	after, err := n.Token().BalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestNodeWithoutRouterOrArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.AMM.Enabled = false
	ctx := context.Background()
	n := openNode(t, cfg)
	defer n.Close(ctx)

	require.Nil(t, n.Router())
	_, err := n.Buy(ctx, bob, ether(1), nil)
	require.ErrorIs(t, err, ErrNoRouter)
	_, err = n.Events(ctx, archive.Query{})
	require.ErrorIs(t, err, ErrNoArchive)

	// Transfers work without a router; liquify is skipped.
	require.NoError(t, n.Token().Transfer(ctx, ownerAddr, alice, ether(10)))
	require.NoError(t, n.Token().Transfer(ctx, alice, bob, ether(10)))
	held, err := n.Token().BalanceOf(bob)
	require.NoError(t, err)
	require.True(t, held.Lt(ether(10)))
}

func TestNodeExportsEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Path = filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()
	n := openNode(t, cfg)
	defer n.Close(ctx)

	require.NoError(t, n.Token().ExcludeFromFee(ctx, ownerAddr, alice))

	data, sum, err := n.ExportEvents(ctx, archive.Query{Type: events.TypeFeeExclusion}, ExportCSV)
	require.NoError(t, err)
	require.Len(t, sum, 64)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], events.TypeFeeExclusion)

	_, _, err = n.ExportEvents(ctx, archive.Query{}, "xml")
	require.Error(t, err)
}

func TestNewNodeRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	_, err := NewNode(context.Background(), cfg)
	require.ErrorIs(t, err, config.ErrInvalid)

	_, err = NewNode(context.Background(), nil)
	require.Error(t, err)
}
