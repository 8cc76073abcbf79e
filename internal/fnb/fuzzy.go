package fnb

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

const fuzzyScanCap = 1000
const topCandidateAuditCap = 3

// RunFuzzy executes FNB phase 1b (spec §4.5): date ∧ fuzzy(reference)
// >= theta ∧ exact amount, with a fast reference-only path when date
// and amount matching are both disabled.
func RunFuzzy(ctx *Context) []types.MatchRecord {
	var out []types.MatchRecord
	total := len(ctx.StmtRows)
	referenceOnly := !ctx.Settings.MatchDates && !ctx.Settings.MatchAmounts

	for i, stmt := range ctx.StmtRows {
		ctx.ReportProgress("fuzzy_match", i+1, total)
		if ctx.Cancelled() {
			return out
		}
		if ctx.StmtUsed[stmt.RowID] || stmt.RefWasBlank {
			continue
		}

		var match fuzzyScored
		var audit []types.CandidateAudit
		var ok bool
		if referenceOnly {
			match, audit, ok = fuzzyReferenceOnly(ctx, &stmt)
		} else {
			match, audit, ok = fuzzyWithFilters(ctx, &stmt)
		}
		if !ok {
			continue
		}

		out = append(out, types.MatchRecord{
			LedgerRowIDs:    []int64{match.ledgerID},
			StatementRowIDs: []int64{stmt.RowID},
			MatchType:       types.MatchFuzzy,
			Similarity:      match.similarity,
			AmountVariance:  match.variance,
			TopCandidates:   audit,
		})
		ctx.markMatched(match.ledgerID, stmt.RowID)
	}
	return out
}

// fuzzyCandidates returns the bounded candidate pool for a statement
// row's reference: the union of ledger row ids sharing a reference
// word, capped at K (MaxFuzzyCandidatesPerRow, default 1000), excluding
// already-matched and blank-marker ledger rows.
func fuzzyCandidates(ctx *Context, stmt *types.NormalizedRow) []int64 {
	scanCap := ctx.Settings.MaxFuzzyCandidatesPerRow
	if scanCap <= 0 {
		scanCap = fuzzyScanCap
	}
	words := refWords(stmt.RefNorm)
	var pool []int64
	for _, w := range words {
		pool = append(pool, ctx.LedgerIdx.ByRefWord[w]...)
	}
	pool = dedupePreserveOrder(pool)

	out := make([]int64, 0, len(pool))
	for _, id := range pool {
		if ctx.LedgerUsed[id] {
			continue
		}
		row := ctx.LedgerIdx.Rows[id]
		if row == nil || row.RefWasBlank {
			continue
		}
		out = append(out, id)
		if len(out) >= scanCap {
			break
		}
	}
	return out
}

// refWords duplicates index's reference tokenisation (alphabetic
// tokens length >= 3) since that helper isn't exported.
func refWords(refNorm string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) >= 3 {
			words = append(words, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range refNorm {
		if r >= 'A' && r <= 'Z' {
			cur = append(cur, r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

type fuzzyScored struct {
	ledgerID   int64
	similarity int
	variance   decimal.Decimal
}

// topCandidatesAudit converts the scored-but-not-necessarily-chosen
// pool into the capped audit trail retained on the MatchRecord (spec
// §7 diagnostics-as-data, mirroring the teacher's top-3
// buildMatchDetails candidate list).
func topCandidatesAudit(scored []fuzzyScored) []types.CandidateAudit {
	if len(scored) == 0 {
		return nil
	}
	n := len(scored)
	if n > topCandidateAuditCap {
		n = topCandidateAuditCap
	}
	out := make([]types.CandidateAudit, n)
	for i := 0; i < n; i++ {
		out[i] = types.CandidateAudit{
			RowID:          scored[i].ledgerID,
			Similarity:     scored[i].similarity,
			AmountVariance: scored[i].variance,
		}
	}
	return out
}

// fuzzyWithFilters applies the bounded reference-word pre-filter,
// scores each candidate, and among candidates clearing both the
// threshold and the active date/amount filters picks the highest
// score, breaking ties by smallest amount variance then stable input
// order (spec §4.5).
func fuzzyWithFilters(ctx *Context, stmt *types.NormalizedRow) (fuzzyScored, []types.CandidateAudit, bool) {
	candidates := fuzzyCandidates(ctx, stmt)

	var scored []fuzzyScored
	for _, id := range candidates {
		row := ctx.LedgerIdx.Rows[id]
		if ctx.Settings.MatchDates {
			if stmt.DateNorm == nil || row.DateNorm == nil {
				continue
			}
			if !withinDateTolerance(*stmt.DateNorm, *row.DateNorm, ctx.Settings.DateToleranceDays) {
				continue
			}
		}

		variance := decimal.Zero
		if ctx.Settings.MatchAmounts {
			sAmt := stmt.EffectiveAmount(ctx.Settings.AmountMode)
			lAmt := row.EffectiveAmount(ctx.Settings.AmountMode)
			if sAmt == nil || lAmt == nil {
				continue
			}
			if types.Cents(*sAmt) != types.Cents(*lAmt) {
				continue
			}
			variance = amountVariance(*sAmt, *lAmt)
		}

		score := ctx.Cache.Score(stmt.RefNorm, row.RefNorm)
		if score < ctx.Settings.FuzzyThreshold {
			continue
		}
		scored = append(scored, fuzzyScored{ledgerID: id, similarity: score, variance: variance})
	}
	if len(scored) == 0 {
		return fuzzyScored{}, nil, false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].similarity != scored[j].similarity {
			return scored[i].similarity > scored[j].similarity
		}
		return scored[i].variance.LessThan(scored[j].variance)
	})
	return scored[0], topCandidatesAudit(scored), true
}

// fuzzyReferenceOnly is the fast path (spec §4.5): bypass every other
// index, look up exact reference directly, and fall back to a bounded
// fuzzy scan over the reference-word candidate pool only when no
// exact hit is available.
func fuzzyReferenceOnly(ctx *Context, stmt *types.NormalizedRow) (fuzzyScored, []types.CandidateAudit, bool) {
	if id, ok := firstUnmatchedLedger(ctx, ctx.LedgerIdx.ByExactRef[stmt.RefNorm]); ok {
		exact := fuzzyScored{ledgerID: id, similarity: 100, variance: decimal.Zero}
		return exact, topCandidatesAudit([]fuzzyScored{exact}), true
	}

	candidates := fuzzyCandidates(ctx, stmt)
	var scored []fuzzyScored
	for _, id := range candidates {
		row := ctx.LedgerIdx.Rows[id]
		score := ctx.Cache.Score(stmt.RefNorm, row.RefNorm)
		if score < ctx.Settings.FuzzyThreshold {
			continue
		}
		scored = append(scored, fuzzyScored{ledgerID: id, similarity: score, variance: decimal.Zero})
	}
	if len(scored) == 0 {
		return fuzzyScored{}, nil, false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})
	return scored[0], topCandidatesAudit(scored), true
}

func withinDateTolerance(a, b time.Time, toleranceDays int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff.Hours() / 24)
	return days <= toleranceDays
}
