package fnb

import (
	"reconciliation-engine/internal/index"
	"reconciliation-engine/internal/types"
)

// dateUnion returns the union of ledger row ids indexed under every
// date key within tolerance of d (spec §4.4 "optionally expanded to
// ±1 day"), deduplicated while preserving first-seen order.
func dateUnion(idx *index.Indexer, d *types.NormalizedRow, toleranceDays int) []int64 {
	var ids []int64
	for _, key := range index.DatesWithinTolerance(*d.DateNorm, toleranceDays) {
		ids = append(ids, idx.ByDate[key]...)
	}
	return dedupePreserveOrder(ids)
}

// RunPerfect executes FNB phase 1a (spec §4.4): date ∧ exact
// reference ∧ exact amount, picking the first unmatched ledger row in
// stable order for each unmatched statement row.
func RunPerfect(ctx *Context) []types.MatchRecord {
	var out []types.MatchRecord
	total := len(ctx.StmtRows)

	for i, stmt := range ctx.StmtRows {
		ctx.ReportProgress("perfect_match", i+1, total)
		if ctx.Cancelled() {
			return out
		}
		if ctx.StmtUsed[stmt.RowID] {
			continue
		}

		candidates := perfectCandidates(ctx, &stmt)
		ledgerID, ok := firstUnmatchedLedger(ctx, candidates)
		if !ok {
			continue
		}

		out = append(out, types.MatchRecord{
			LedgerRowIDs:    []int64{ledgerID},
			StatementRowIDs: []int64{stmt.RowID},
			MatchType:       types.MatchPerfect,
			Similarity:      100,
		})
		ctx.markMatched(ledgerID, stmt.RowID)
	}
	return out
}

// perfectCandidates intersects the ledger lists selected by the
// active criteria for one statement row. References equal to a
// synthetic blank marker are globally unique, so a blank-reference
// statement row's by_exact_ref lookup can never hit another row
// (spec §4.4 edge case).
func perfectCandidates(ctx *Context, stmt *types.NormalizedRow) []int64 {
	var lists [][]int64

	if ctx.Settings.MatchReferences {
		lists = append(lists, ctx.LedgerIdx.ByExactRef[stmt.RefNorm])
	}
	if ctx.Settings.MatchDates && stmt.DateNorm != nil {
		lists = append(lists, dateUnion(ctx.LedgerIdx, stmt, ctx.Settings.DateToleranceDays))
	}
	if ctx.Settings.MatchAmounts {
		amt := stmt.EffectiveAmount(ctx.Settings.AmountMode)
		if amt == nil {
			return nil
		}
		lists = append(lists, ctx.LedgerIdx.ByAmountExact[types.Cents(*amt)])
	}

	if len(lists) == 0 {
		return ctx.sortedLedgerRowIDs()
	}
	return intersectSorted(lists...)
}

// firstUnmatchedLedger scans candidates in stable order and returns
// the first one not yet marked used.
func firstUnmatchedLedger(ctx *Context, candidates []int64) (int64, bool) {
	for _, id := range candidates {
		if !ctx.LedgerUsed[id] {
			return id, true
		}
	}
	return 0, false
}
