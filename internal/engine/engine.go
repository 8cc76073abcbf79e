// Package engine wires the normalizer, indexer, similarity cache, and
// FNB phases into the single public Reconcile entry point (spec §6),
// plus the standalone Corporate classifier entry point.
package engine

import (
	"time"

	"github.com/google/uuid"

	"reconciliation-engine/internal/corporate"
	"reconciliation-engine/internal/fnb"
	"reconciliation-engine/internal/index"
	"reconciliation-engine/internal/logging"
	"reconciliation-engine/internal/normalize"
	"reconciliation-engine/internal/similarity"
	"reconciliation-engine/internal/types"
)

// Reconcile runs the full FNB pipeline once, synchronously, over
// ledger_rows and statement_rows (spec §5, §6): normalise, index,
// then perfect -> fuzzy -> foreign-credit -> split, in that fixed
// order, each phase seeing only rows not yet matched.
func Reconcile(ledgerRaw, stmtRaw []types.RawRow, ledgerMapping, stmtMapping types.ColumnMapping, settings types.Settings) (types.ReconciliationResult, error) {
	if err := settings.Validate(); err != nil {
		return types.ReconciliationResult{}, err
	}

	runID := uuid.NewString()
	log := logging.ForRun(runID)
	timings := make(map[string]time.Duration)

	ledgerNorm, ledgerWarnings, err := timeNormalize(timings, "normalize_ledger", normalize.New(ledgerMapping, true), ledgerRaw)
	if err != nil {
		return types.ReconciliationResult{}, err
	}
	stmtNorm, stmtWarnings, err := timeNormalize(timings, "normalize_statement", normalize.New(stmtMapping, false), stmtRaw)
	if err != nil {
		return types.ReconciliationResult{}, err
	}
	log.WithField("ledger_rows", len(ledgerNorm)).WithField("statement_rows", len(stmtNorm)).Info("normalized input")

	idxOpts := index.Options{
		ByExactRef:     settings.MatchReferences,
		ByRefWord:      settings.MatchReferences && settings.FuzzyEnabled,
		ByDate:         settings.MatchDates,
		ByAmountExact:  settings.MatchAmounts,
		ByAmountBucket: settings.SplitEnabled,
		AmountMode:     settings.AmountMode,
	}
	start := time.Now()
	ledgerIdx := index.Build(ledgerNorm, idxOpts)
	stmtIdx := index.Build(stmtNorm, idxOpts)
	timings["index"] = time.Since(start)

	cache := similarity.New()
	ctx := fnb.NewContext(ledgerNorm, stmtNorm, ledgerIdx, stmtIdx, cache, settings)

	status := "completed"
	var matched, foreignCredits, splits []types.MatchRecord
	var overrun []string

	phases := []struct {
		name string
		run  func() []types.MatchRecord
	}{
		{"perfect_match", func() []types.MatchRecord { return fnb.RunPerfect(ctx) }},
		{"fuzzy_match", func() []types.MatchRecord { return fnb.RunFuzzy(ctx) }},
		{"foreign_credit_match", func() []types.MatchRecord { return fnb.RunForeignCredit(ctx) }},
	}

	for _, p := range phases {
		if ctx.Cancelled() {
			status = "cancelled"
			break
		}
		t0 := time.Now()
		records := p.run()
		timings[p.name] = time.Since(t0)
		log.WithField("phase", p.name).WithField("matches", len(records)).Debug("phase complete")

		switch p.name {
		case "perfect_match":
			matched = append(matched, records...)
		case "fuzzy_match":
			matched = append(matched, records...)
		case "foreign_credit_match":
			foreignCredits = append(foreignCredits, records...)
		}
	}

	if status != "cancelled" && settings.SplitEnabled {
		if skip, reason := fnb.ShouldSkipSplit(ctx); skip {
			overrun = append(overrun, "split_phase_skipped:"+reason)
		} else if ctx.Cancelled() {
			status = "cancelled"
		} else {
			recordCap := settings.MaxSplitRecordsPerSubPhase
			if recordCap <= 0 {
				recordCap = 50
			}
			t0 := time.Now()
			splitsA := fnb.RunSplitManyLedgerOneStatement(ctx)
			timings["split_many_ledger_one_statement"] = time.Since(t0)
			if len(splitsA) >= recordCap {
				overrun = append(overrun, "split_many_ledger_one_statement_cap_reached")
			}

			if ctx.Cancelled() {
				status = "cancelled"
			}

			t1 := time.Now()
			splitsB := fnb.RunSplitOneLedgerManyStatement(ctx)
			timings["split_one_ledger_many_statement"] = time.Since(t1)
			if len(splitsB) >= recordCap {
				overrun = append(overrun, "split_one_ledger_many_statement_cap_reached")
			}

			splits = append(splits, splitsA...)
			splits = append(splits, splitsB...)
		}
	}
	if ctx.Cancelled() {
		status = "cancelled"
	}

	unmatchedLedger := complement(ledgerNorm, ctx.LedgerUsed)
	unmatchedStmt := complement(stmtNorm, ctx.StmtUsed)

	result := types.ReconciliationResult{
		Matched:            matched,
		Splits:             splits,
		ForeignCredits:     foreignCredits,
		UnmatchedLedger:    unmatchedLedger,
		UnmatchedStatement: unmatchedStmt,
		Diagnostics: types.Diagnostics{
			RunID:          runID,
			Status:         status,
			PhaseTimings:   timings,
			CacheStats:     cache.Stats(),
			LedgerWarnings: ledgerWarnings,
			StmtWarnings:   stmtWarnings,
			IntegrityCheck: checkReconciliationIntegrity(ledgerNorm, stmtNorm, allMatchRecords(matched, foreignCredits, splits), unmatchedLedger, unmatchedStmt),
			Overrun:        overrun,
		},
	}
	log.WithField("status", status).WithField("matched", len(matched)).WithField("splits", len(splits)).Info("reconciliation run complete")
	cache.Clear()
	return result, nil
}

// ClassifyCorporate runs the independent Corporate batch classifier
// (spec §4.9, §6) over a single table's rows.
func ClassifyCorporate(rows []types.CorporateRow, settings types.CorporateSettings) types.CorporateResult {
	return corporate.Classify(rows, settings)
}

func timeNormalize(timings map[string]time.Duration, label string, n *normalize.Normalizer, raw []types.RawRow) ([]types.NormalizedRow, types.ParseWarnings, error) {
	start := time.Now()
	rows, warnings, err := n.Normalize(raw)
	timings[label] = time.Since(start)
	return rows, warnings, err
}

// complement returns the row ids from rows not present (true) in used,
// preserving input order (spec §3 "unmatched sets are exactly the
// complements of matched sets").
func complement(rows []types.NormalizedRow, used map[int64]bool) []int64 {
	var out []int64
	for _, r := range rows {
		if !used[r.RowID] {
			out = append(out, r.RowID)
		}
	}
	return out
}

// allMatchRecords bundles the three matched-record slices for the
// conservation check; not part of the public result shape.
func allMatchRecords(matched, foreignCredits, splits []types.MatchRecord) []types.MatchRecord {
	all := make([]types.MatchRecord, 0, len(matched)+len(foreignCredits)+len(splits))
	all = append(all, matched...)
	all = append(all, foreignCredits...)
	all = append(all, splits...)
	return all
}
