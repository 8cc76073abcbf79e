package fnb

import (
	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

// RunForeignCredit executes FNB phase 2 (spec §4.6): restricts
// candidates to rows with |amount| > threshold, matches purely on
// amount equality (to cents) and optionally date; reference is
// ignored entirely.
func RunForeignCredit(ctx *Context) []types.MatchRecord {
	var out []types.MatchRecord
	total := len(ctx.StmtRows)
	threshold := ctx.Settings.ForeignCreditThreshold

	for i, stmt := range ctx.StmtRows {
		ctx.ReportProgress("foreign_credit_match", i+1, total)
		if ctx.Cancelled() {
			return out
		}
		if ctx.StmtUsed[stmt.RowID] {
			continue
		}
		if stmt.Amount == nil || stmt.Amount.Abs().LessThanOrEqual(threshold) {
			continue
		}

		ledgerID, ok := firstForeignCreditLedger(ctx, &stmt, threshold)
		if !ok {
			continue
		}

		out = append(out, types.MatchRecord{
			LedgerRowIDs:    []int64{ledgerID},
			StatementRowIDs: []int64{stmt.RowID},
			MatchType:       types.MatchForeignCredit,
			Similarity:      100,
			AmountVariance:  decimal.Zero,
		})
		ctx.markMatched(ledgerID, stmt.RowID)
	}
	return out
}

func firstForeignCreditLedger(ctx *Context, stmt *types.NormalizedRow, threshold decimal.Decimal) (int64, bool) {
	cents := types.Cents(*stmt.EffectiveAmount(ctx.Settings.AmountMode))
	candidates := ctx.LedgerIdx.ByAmountExact[cents]

	if ctx.Settings.MatchDates && stmt.DateNorm != nil {
		candidates = intersectSorted(candidates, dateUnion(ctx.LedgerIdx, stmt, ctx.Settings.DateToleranceDays))
	}

	for _, id := range candidates {
		if ctx.LedgerUsed[id] {
			continue
		}
		row := ctx.LedgerIdx.Rows[id]
		amt := row.EffectiveAmount(ctx.Settings.AmountMode)
		if amt == nil || amt.Abs().LessThanOrEqual(threshold) {
			continue
		}
		return id, true
	}
	return 0, false
}
