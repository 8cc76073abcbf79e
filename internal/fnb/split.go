package fnb

import (
	"sort"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/index"
	"reconciliation-engine/internal/subsetsum"
	"reconciliation-engine/internal/types"
)

const (
	splitCandidateCap  = 20
	splitRecordCap     = 50
	splitMinComponents = 2
)

// ShouldSkipSplit applies the caller-configurable skip heuristics
// (spec §4.7): skip once the match rate after phases 1-2 already
// exceeds the configured ceiling, or once unmatched counts on either
// side exceed the configured cap.
func ShouldSkipSplit(ctx *Context) (skip bool, reason string) {
	totalLedger := len(ctx.LedgerRows)
	totalStmt := len(ctx.StmtRows)
	unmatchedLedger := totalLedger - countUsed(ctx.LedgerUsed)
	unmatchedStmt := totalStmt - countUsed(ctx.StmtUsed)

	total := totalLedger + totalStmt
	if total > 0 && ctx.Settings.SkipSplitIfMatchRateExceeds > 0 {
		matched := (totalLedger - unmatchedLedger) + (totalStmt - unmatchedStmt)
		rate := float64(matched) / float64(total)
		if rate > ctx.Settings.SkipSplitIfMatchRateExceeds {
			return true, "match_rate_exceeded"
		}
	}
	limit := ctx.Settings.SkipSplitIfUnmatchedExceeds
	if limit > 0 && (unmatchedLedger > limit || unmatchedStmt > limit) {
		return true, "unmatched_count_exceeded"
	}
	return false, ""
}

func countUsed(used map[int64]bool) int {
	n := 0
	for _, v := range used {
		if v {
			n++
		}
	}
	return n
}

// RunSplitManyLedgerOneStatement is sub-phase A (spec §4.7): for each
// unmatched statement row S with target T, find n in [2, max] unmatched
// ledger rows summing to T within tolerance.
func RunSplitManyLedgerOneStatement(ctx *Context) []types.MatchRecord {
	var out []types.MatchRecord
	total := len(ctx.StmtRows)
	recordCap := ctx.Settings.MaxSplitRecordsPerSubPhase
	if recordCap <= 0 {
		recordCap = splitRecordCap
	}

	for i, stmt := range ctx.StmtRows {
		if len(out) >= recordCap {
			break
		}
		ctx.ReportProgress("split_many_ledger_one_statement", i+1, total)
		if ctx.Cancelled() {
			return out
		}
		if ctx.StmtUsed[stmt.RowID] || stmt.Amount == nil {
			continue
		}

		target := stmt.Amount.Abs()
		candidates := splitLedgerCandidates(ctx, &stmt)
		if len(candidates) < splitMinComponents {
			continue
		}

		items := make([]subsetsum.Item, len(candidates))
		for j, id := range candidates {
			row := ctx.LedgerIdx.Rows[id]
			amt := row.EffectiveAmount(ctx.Settings.AmountMode)
			items[j] = subsetsum.Item{RowID: id, AmountCents: types.Cents(amt.Abs())}
		}

		tol := splitTolerance(target, ctx.Settings.SplitTolerance)
		minSum, maxSum := subsetsum.Window(types.Cents(target), tol)
		found, ok := subsetsum.Find(items, minSum, maxSum, ctx.Settings.SplitMaxComponents)
		if !ok {
			continue
		}

		ledgerIDs := make([]int64, len(found))
		var sum decimal.Decimal
		for j, it := range found {
			ledgerIDs[j] = it.RowID
			sum = sum.Add(ctx.LedgerIdx.Rows[it.RowID].EffectiveAmount(ctx.Settings.AmountMode).Abs())
		}

		out = append(out, types.MatchRecord{
			LedgerRowIDs:    ledgerIDs,
			StatementRowIDs: []int64{stmt.RowID},
			MatchType:       types.MatchSplitManyLedgerOneStmt,
			Similarity:      100,
			AmountVariance:  amountVariance(sum, target),
		})
		for _, id := range ledgerIDs {
			ctx.LedgerUsed[id] = true
		}
		ctx.StmtUsed[stmt.RowID] = true
	}
	return out
}

// RunSplitOneLedgerManyStatement is sub-phase B (spec §4.7),
// symmetric to sub-phase A: iterates unmatched ledger rows against
// candidate statement combinations. Rows consumed by sub-phase A are
// already marked used and so are excluded here, giving disjointness
// between the two sub-phases for free.
func RunSplitOneLedgerManyStatement(ctx *Context) []types.MatchRecord {
	var out []types.MatchRecord
	total := len(ctx.LedgerRows)
	recordCap := ctx.Settings.MaxSplitRecordsPerSubPhase
	if recordCap <= 0 {
		recordCap = splitRecordCap
	}

	for i, ledger := range ctx.LedgerRows {
		if len(out) >= recordCap {
			break
		}
		ctx.ReportProgress("split_one_ledger_many_statement", i+1, total)
		if ctx.Cancelled() {
			return out
		}
		if ctx.LedgerUsed[ledger.RowID] {
			continue
		}
		target := ledger.EffectiveAmount(ctx.Settings.AmountMode)
		if target == nil {
			continue
		}
		targetAbs := target.Abs()

		candidates := splitStatementCandidates(ctx, &ledger)
		if len(candidates) < splitMinComponents {
			continue
		}

		items := make([]subsetsum.Item, len(candidates))
		for j, id := range candidates {
			row := ctx.StmtIdx.Rows[id]
			items[j] = subsetsum.Item{RowID: id, AmountCents: types.Cents(row.Amount.Abs())}
		}

		tol := splitTolerance(targetAbs, ctx.Settings.SplitTolerance)
		minSum, maxSum := subsetsum.Window(types.Cents(targetAbs), tol)
		found, ok := subsetsum.Find(items, minSum, maxSum, ctx.Settings.SplitMaxComponents)
		if !ok {
			continue
		}

		stmtIDs := make([]int64, len(found))
		var sum decimal.Decimal
		for j, it := range found {
			stmtIDs[j] = it.RowID
			sum = sum.Add(ctx.StmtIdx.Rows[it.RowID].Amount.Abs())
		}

		out = append(out, types.MatchRecord{
			LedgerRowIDs:    []int64{ledger.RowID},
			StatementRowIDs: stmtIDs,
			MatchType:       types.MatchSplitOneLedgerManyStmt,
			Similarity:      100,
			AmountVariance:  amountVariance(sum, targetAbs),
		})
		ctx.LedgerUsed[ledger.RowID] = true
		for _, id := range stmtIDs {
			ctx.StmtUsed[id] = true
		}
	}
	return out
}

// splitTolerance implements max(0.01, 0.02*T) from spec §3/§4.7 as a
// fractional rate relative to T, since subsetsum.Window takes a rate.
func splitTolerance(target decimal.Decimal, rate float64) float64 {
	absolute := decimal.NewFromFloat(0.01)
	byRate := target.Mul(decimal.NewFromFloat(rate))
	if byRate.LessThan(absolute) {
		if target.IsZero() {
			return rate
		}
		return absolute.Div(target).InexactFloat64()
	}
	return rate
}

// splitLedgerCandidates gathers unmatched ledger rows that carry an
// amount for sub-phase A, filtered by the active date criterion and,
// when reference matching is active, by the fuzzy threshold via the
// word index (spec §4.7), then caps the pool at the most
// amount-plausible rows (see capByPlausibility).
func splitLedgerCandidates(ctx *Context, stmt *types.NormalizedRow) []int64 {
	var pool []int64
	if ctx.Settings.MatchReferences {
		pool = fuzzyCandidates(ctx, stmt)
		filtered := pool[:0:0]
		for _, id := range pool {
			row := ctx.LedgerIdx.Rows[id]
			if row.EffectiveAmount(ctx.Settings.AmountMode) != nil && ctx.Cache.Score(stmt.RefNorm, row.RefNorm) >= ctx.Settings.FuzzyThreshold {
				filtered = append(filtered, id)
			}
		}
		pool = filtered
	} else {
		for _, row := range ctx.LedgerRows {
			if !ctx.LedgerUsed[row.RowID] && row.EffectiveAmount(ctx.Settings.AmountMode) != nil {
				pool = append(pool, row.RowID)
			}
		}
		sortByRowID(pool)
	}

	if ctx.Settings.MatchDates && stmt.DateNorm != nil {
		pool = intersectSorted(pool, dateUnion(ctx.LedgerIdx, stmt, ctx.Settings.DateToleranceDays))
	}

	return capByPlausibility(ctx, pool, stmt.Amount, stmt.RefNorm, true)
}

// splitStatementCandidates is the sub-phase-B mirror of
// splitLedgerCandidates, operating over the statement index.
func splitStatementCandidates(ctx *Context, ledger *types.NormalizedRow) []int64 {
	var pool []int64
	if ctx.Settings.MatchReferences {
		words := refWords(ledger.RefNorm)
		var raw []int64
		for _, w := range words {
			raw = append(raw, ctx.StmtIdx.ByRefWord[w]...)
		}
		raw = dedupePreserveOrder(raw)
		for _, id := range raw {
			if ctx.StmtUsed[id] {
				continue
			}
			row := ctx.StmtIdx.Rows[id]
			if row == nil || row.RefWasBlank || row.Amount == nil {
				continue
			}
			if ctx.Cache.Score(ledger.RefNorm, row.RefNorm) >= ctx.Settings.FuzzyThreshold {
				pool = append(pool, id)
			}
		}
	} else {
		for _, row := range ctx.StmtRows {
			if !ctx.StmtUsed[row.RowID] && row.Amount != nil {
				pool = append(pool, row.RowID)
			}
		}
		sortByRowID(pool)
	}

	if ctx.Settings.MatchDates && ledger.DateNorm != nil {
		var dated []int64
		for _, key := range index.DatesWithinTolerance(*ledger.DateNorm, ctx.Settings.DateToleranceDays) {
			dated = append(dated, ctx.StmtIdx.ByDate[key]...)
		}
		pool = intersectSorted(pool, dedupePreserveOrder(dated))
	}

	target := ledger.EffectiveAmount(ctx.Settings.AmountMode)
	return capByPlausibility(ctx, pool, target, ledger.RefNorm, false)
}

// capByPlausibility trims a candidate pool to the MaxSplitCandidates
// (default 20) most amount-plausible rows: those whose amount is
// closest to half of the target, ties broken by row id. The ranking
// uses amounts only; reference similarity scores do not affect it,
// even when reference matching is active.
func capByPlausibility(ctx *Context, pool []int64, target *decimal.Decimal, refNorm string, ledgerSide bool) []int64 {
	candidateCap := ctx.Settings.MaxSplitCandidates
	if candidateCap <= 0 {
		candidateCap = splitCandidateCap
	}
	if len(pool) <= candidateCap {
		return pool
	}

	type ranked struct {
		id    int64
		score float64
	}
	rs := make([]ranked, len(pool))
	for i, id := range pool {
		var amt *decimal.Decimal
		if ledgerSide {
			row := ctx.LedgerIdx.Rows[id]
			amt = row.EffectiveAmount(ctx.Settings.AmountMode)
		} else {
			row := ctx.StmtIdx.Rows[id]
			amt = row.Amount
		}
		var plausibility float64
		if amt != nil && target != nil && !target.IsZero() {
			plausibility = amt.Abs().Div(*target).InexactFloat64()
		}
		rs[i] = ranked{id: id, score: plausibility}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		di := distanceFromHalf(rs[i].score)
		dj := distanceFromHalf(rs[j].score)
		if di != dj {
			return di < dj
		}
		return rs[i].id < rs[j].id
	})

	out := make([]int64, 0, candidateCap)
	for i := 0; i < candidateCap && i < len(rs); i++ {
		out = append(out, rs[i].id)
	}
	sortByRowID(out)
	return out
}

func distanceFromHalf(ratio float64) float64 {
	d := ratio - 0.5
	if d < 0 {
		d = -d
	}
	return d
}
