package engine

import (
	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

// oneCent bounds the rounding tolerance allowed before a sum drift is
// reported as an integrity violation (spec §3 "≤ 0.01 per side").
var oneCent = decimal.NewFromFloat(0.01)

// checkReconciliationIntegrity verifies conservation (spec §3, §8):
// the multiset of row_ids across matched+splits+foreign_credits+
// unmatched equals the input row_ids on each side, and signed amount
// sums are preserved within tolerance. It never mutates the result;
// violations are only reported.
func checkReconciliationIntegrity(ledger, stmt []types.NormalizedRow, allMatches []types.MatchRecord, unmatchedLedger, unmatchedStmt []int64) types.IntegrityCheck {
	ledgerByID := make(map[int64]types.NormalizedRow, len(ledger))
	for _, r := range ledger {
		ledgerByID[r.RowID] = r
	}
	stmtByID := make(map[int64]types.NormalizedRow, len(stmt))
	for _, r := range stmt {
		stmtByID[r.RowID] = r
	}

	seenLedger := make(map[int64]bool, len(ledger))
	seenStmt := make(map[int64]bool, len(stmt))
	ledgerOut, stmtOut := 0, 0
	for _, m := range allMatches {
		for _, id := range m.LedgerRowIDs {
			seenLedger[id] = true
		}
		for _, id := range m.StatementRowIDs {
			seenStmt[id] = true
		}
		ledgerOut += len(m.LedgerRowIDs)
		stmtOut += len(m.StatementRowIDs)
	}
	for _, id := range unmatchedLedger {
		seenLedger[id] = true
	}
	for _, id := range unmatchedStmt {
		seenStmt[id] = true
	}
	ledgerOut += len(unmatchedLedger)
	stmtOut += len(unmatchedStmt)

	var details []string
	violated := false

	// Counting occurrences (not distinct ids) makes a row emitted twice
	// show up as drift even when every input row id is present.
	rowDelta := (len(ledger) - ledgerOut) + (len(stmt) - stmtOut)
	if rowDelta != 0 || len(seenLedger) != len(ledger) || len(seenStmt) != len(stmt) {
		violated = true
		details = append(details, "row count drift between input and output partition")
	}

	var inDebit, inCredit, outDebit, outCredit decimal.Decimal
	for _, r := range ledger {
		if r.Debit != nil {
			inDebit = inDebit.Add(*r.Debit)
		}
		if r.Credit != nil {
			inCredit = inCredit.Add(*r.Credit)
		}
	}
	for id := range seenLedger {
		r, ok := ledgerByID[id]
		if !ok {
			continue
		}
		if r.Debit != nil {
			outDebit = outDebit.Add(*r.Debit)
		}
		if r.Credit != nil {
			outCredit = outCredit.Add(*r.Credit)
		}
	}

	debitDelta := inDebit.Sub(outDebit)
	creditDelta := inCredit.Sub(outCredit)
	if debitDelta.Abs().GreaterThan(oneCent) {
		violated = true
		details = append(details, "ledger debit sum drift")
	}
	if creditDelta.Abs().GreaterThan(oneCent) {
		violated = true
		details = append(details, "ledger credit sum drift")
	}

	var inAmount, outAmount decimal.Decimal
	for _, r := range stmt {
		if r.Amount != nil {
			inAmount = inAmount.Add(*r.Amount)
		}
	}
	for id := range seenStmt {
		r, ok := stmtByID[id]
		if ok && r.Amount != nil {
			outAmount = outAmount.Add(*r.Amount)
		}
	}
	if inAmount.Sub(outAmount).Abs().GreaterThan(oneCent) {
		violated = true
		details = append(details, "statement amount sum drift")
	}

	return types.IntegrityCheck{
		Violated:       violated,
		RowCountDelta:  rowDelta,
		DebitSumDelta:  debitDelta,
		CreditSumDelta: creditDelta,
		Details:        details,
	}
}
