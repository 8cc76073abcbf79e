package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"reconciliation-engine/internal/types"
)

func writeReconciliationReport(result types.ReconciliationResult, format string, w io.Writer) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return writeReconciliationConsole(result, w)
	}
}

func writeReconciliationConsole(result types.ReconciliationResult, w io.Writer) error {
	d := result.Diagnostics
	fmt.Fprintf(w, "run %s: %s\n", d.RunID, d.Status)
	fmt.Fprintf(w, "  matched:          %d\n", len(result.Matched))
	fmt.Fprintf(w, "  foreign credits:  %d\n", len(result.ForeignCredits))
	fmt.Fprintf(w, "  splits:           %d\n", len(result.Splits))
	fmt.Fprintf(w, "  unmatched ledger: %d\n", len(result.UnmatchedLedger))
	fmt.Fprintf(w, "  unmatched stmt:   %d\n", len(result.UnmatchedStatement))
	fmt.Fprintf(w, "  cache hits/misses: %d/%d\n", d.CacheStats.Hits, d.CacheStats.Misses)
	if d.LedgerWarnings.FailedDates+d.LedgerWarnings.FailedAmounts+d.LedgerWarnings.BlankReferences > 0 {
		fmt.Fprintf(w, "  ledger warnings:  dates=%d amounts=%d blank_refs=%d\n",
			d.LedgerWarnings.FailedDates, d.LedgerWarnings.FailedAmounts, d.LedgerWarnings.BlankReferences)
	}
	if d.StmtWarnings.FailedDates+d.StmtWarnings.FailedAmounts+d.StmtWarnings.BlankReferences > 0 {
		fmt.Fprintf(w, "  statement warnings: dates=%d amounts=%d blank_refs=%d\n",
			d.StmtWarnings.FailedDates, d.StmtWarnings.FailedAmounts, d.StmtWarnings.BlankReferences)
	}
	if d.IntegrityCheck.Violated {
		fmt.Fprintf(w, "  INTEGRITY VIOLATION: %v\n", d.IntegrityCheck.Details)
	}
	for _, o := range d.Overrun {
		fmt.Fprintf(w, "  overrun: %s\n", o)
	}
	for name, dur := range d.PhaseTimings {
		fmt.Fprintf(w, "  phase %-30s %v\n", name, dur)
	}
	return nil
}

func writeCorporateReport(result types.CorporateResult, format string, w io.Writer) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		fmt.Fprintf(w, "run %s\n", result.RunID)
		batches := []struct {
			name string
			rows []types.BatchRecord
		}{
			{"batch1 (correcting)", result.Batch1},
			{"batch2 (exact match)", result.Batch2},
			{"batch3 (debit > credit)", result.Batch3},
			{"batch4 (credit > debit)", result.Batch4},
			{"batch5 (small variance)", result.Batch5},
			{"batch6 (unresolved/blank)", result.Batch6},
		}
		for _, b := range batches {
			fmt.Fprintf(w, "%s: %d rows\n", b.name, len(b.rows))
			for _, r := range b.rows {
				if r.VariancePct != nil {
					fmt.Fprintf(w, "  row %d variance %s%%\n", r.RowID, r.VariancePct.String())
				} else {
					fmt.Fprintf(w, "  row %d\n", r.RowID)
				}
			}
		}
		if result.IntegrityReport.Violated {
			fmt.Fprintf(w, "INTEGRITY VIOLATION: %v\n", result.IntegrityReport.Details)
		}
		return nil
	}
}
