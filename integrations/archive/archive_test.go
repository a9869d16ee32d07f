package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"reflexledger/core/events"
)

func openArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	a.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return a
}

func TestArchiveAppendAndList(t *testing.T) {
	a := openArchive(t)
	ctx := context.Background()
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	a.Emit(events.Transfer{From: owner, To: owner, Value: uint256.NewInt(10), Gross: uint256.NewInt(10)})
	a.Emit(events.Threshold{Threshold: uint256.NewInt(99)})
	a.Emit(events.Transfer{From: owner, To: owner, Value: uint256.NewInt(20), Gross: uint256.NewInt(20)})

	all, err := a.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, events.TypeThreshold, all[1].Type)
	require.Equal(t, "99", all[1].Attributes["threshold"])
	require.Equal(t, time.Unix(1_700_000_000, 0).UTC(), all[0].RecordedAt)

	transfers, err := a.List(ctx, Query{Type: events.TypeTransfer, AfterSeq: all[0].Seq})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, "20", transfers[0].Attributes["value"])

	limited, err := a.List(ctx, Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	n, err := a.Count(ctx, events.TypeTransfer)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	n, err = a.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestArchiveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Append(context.Background(), events.SwapAndLiquifyEnabled{Enabled: true}))
	require.NoError(t, a.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count(context.Background(), events.TypeSwapAndLiquifyEnabled)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.ErrorIs(t, err, ErrPathRequired)
}
