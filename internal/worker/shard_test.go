package worker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"reconciliation-engine/internal/fnb"
	"reconciliation-engine/internal/index"
	"reconciliation-engine/internal/similarity"
	"reconciliation-engine/internal/types"
)

func buildShardedCtx(t *testing.T, n int) *fnb.Context {
	t.Helper()
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	ledger := make([]types.NormalizedRow, 0, n)
	stmt := make([]types.NormalizedRow, 0, n)
	for i := 0; i < n; i++ {
		amt := decimal.NewFromInt(int64(100 + i))
		ledger = append(ledger, types.NormalizedRow{
			RowID: int64(i), RefNorm: "REF", DateNorm: &day, Debit: &amt,
		})
		stmtAmt := decimal.NewFromInt(int64(100 + i))
		stmt = append(stmt, types.NormalizedRow{
			RowID: int64(i), RefNorm: "REF", DateNorm: &day, Amount: &stmtAmt,
		})
	}

	opts := index.Options{ByExactRef: true, ByDate: true, ByAmountExact: true, AmountMode: types.AmountModeDebits}
	ledgerIdx := index.Build(ledger, opts)
	stmtIdx := index.Build(stmt, opts)
	settings := types.DefaultSettings()
	settings.AmountMode = types.AmountModeDebits
	return fnb.NewContext(ledger, stmt, ledgerIdx, stmtIdx, similarity.New(), settings)
}

func TestRunPerfectSharded_MatchesSingleThreaded(t *testing.T) {
	const n = 40

	ctxSingle := buildShardedCtx(t, n)
	singleResult := fnb.RunPerfect(ctxSingle)

	ctxSharded := buildShardedCtx(t, n)
	runner := NewRunner(ctxSharded, 4)
	shardedResult, statuses := runner.RunPerfectSharded()

	require.Len(t, shardedResult, len(singleResult))
	require.Equal(t, len(singleResult), len(ctxSingle.LedgerUsed))
	require.Equal(t, len(ctxSingle.LedgerUsed), len(ctxSharded.LedgerUsed))

	for _, s := range statuses {
		require.Equal(t, ShardCompleted, s.Status)
	}
}

func TestPartition_CoversEveryRowOnce(t *testing.T) {
	ranges := partition(10, 3)
	total := 0
	for _, r := range ranges {
		total += r.end - r.start
	}
	require.Equal(t, 10, total)
	require.Equal(t, 0, ranges[0].start)
	require.Equal(t, 10, ranges[len(ranges)-1].end)
}

func TestPartition_EmptyInput(t *testing.T) {
	require.Nil(t, partition(0, 4))
}
