// Package corporate implements the Corporate Settlements batch
// classifier (spec §4.9): an independent classifier that partitions a
// single table's rows into six disjoint batches based on the row's own
// reference (blank, or a CORRECTING reference found in the journal
// index; rows are not paired with others sharing their reference) and
// the relationship between a row's foreign debit and
// foreign credit.
package corporate

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/normalize"
	"reconciliation-engine/internal/types"
)

// oneCent is the rounding-noise threshold used to tell a material
// debit/credit mismatch from floating-point-style drift.
var oneCent = decimal.NewFromFloat(0.01)

// Classify partitions rows into six disjoint batches (spec §4.9) and
// runs the post-classification conservation check. It never mutates
// input rows.
func Classify(rows []types.CorporateRow, settings types.CorporateSettings) types.CorporateResult {
	journalIdx := buildJournalIndex(rows)

	result := types.CorporateResult{RunID: uuid.NewString()}
	for _, row := range rows {
		refNorm, wasBlank := normalize.NormalizeReference(row.Reference, row.RowID)

		switch {
		case !wasBlank && isCorrecting(refNorm, row, journalIdx):
			result.Batch1 = append(result.Batch1, types.BatchRecord{RowID: row.RowID, Batch: 1})
		case wasBlank:
			result.Batch6 = append(result.Batch6, types.BatchRecord{RowID: row.RowID, Batch: 6})
		default:
			assignByVariance(&result, row, settings)
		}
	}

	result.IntegrityReport = checkConservation(rows, result)
	return result
}

// assignByVariance implements batches 2-5 and the batch-6 remainder
// for a non-blank, non-CORRECTING row, per the table in spec §4.9.
func assignByVariance(result *types.CorporateResult, row types.CorporateRow, settings types.CorporateSettings) {
	fd, fc := row.ForeignDebit, row.ForeignCredit
	diff := fd.Sub(fc).Abs()

	tolerance := settings.Tolerance
	if tolerance.IsZero() {
		tolerance = oneCent
	}

	switch {
	case diff.LessThan(tolerance):
		result.Batch2 = append(result.Batch2, types.BatchRecord{RowID: row.RowID, Batch: 2})
	case fd.Sub(fc).GreaterThanOrEqual(decimal.NewFromInt(1)) && withinPercent(fd, fc, settings.PercentThreshold):
		v := variancePct(fd, fc)
		result.Batch3 = append(result.Batch3, types.BatchRecord{RowID: row.RowID, Batch: 3, VariancePct: &v})
	case fc.Sub(fd).GreaterThanOrEqual(decimal.NewFromInt(1)) && withinPercent(fd, fc, settings.PercentThreshold):
		v := variancePct(fd, fc)
		result.Batch4 = append(result.Batch4, types.BatchRecord{RowID: row.RowID, Batch: 4, VariancePct: &v})
	case diff.GreaterThanOrEqual(tolerance) && diff.LessThan(decimal.NewFromInt(1)):
		v := variancePct(fd, fc)
		result.Batch5 = append(result.Batch5, types.BatchRecord{RowID: row.RowID, Batch: 5, VariancePct: &v})
	default:
		result.Batch6 = append(result.Batch6, types.BatchRecord{RowID: row.RowID, Batch: 6})
	}
}

func withinPercent(fd, fc decimal.Decimal, thresholdPct float64) bool {
	v := variancePct(fd, fc)
	return v.LessThanOrEqual(decimal.NewFromFloat(thresholdPct))
}

// buildJournalIndex hash-indexes journal numbers to the rows that
// carry them (spec §4.9 "Hash-indexed").
func buildJournalIndex(rows []types.CorporateRow) map[string][]int64 {
	idx := make(map[string][]int64)
	for _, row := range rows {
		if row.JournalNumber == "" {
			continue
		}
		idx[row.JournalNumber] = append(idx[row.JournalNumber], row.RowID)
	}
	return idx
}

// isCorrecting implements batch 1: the reference contains the token
// CORRECTING and a numeric token extracted from the reference matches
// some row's journal number.
func isCorrecting(refNorm string, row types.CorporateRow, journalIdx map[string][]int64) bool {
	if !strings.Contains(refNorm, "CORRECTING") {
		return false
	}
	for _, token := range extractNumericTokens(row.Reference) {
		if _, ok := journalIdx[token]; ok {
			return true
		}
	}
	return false
}

func extractNumericTokens(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cur = append(cur, r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// variancePct computes |FD-FC| / max(FD,FC) * 100, rounded to two
// decimals (spec §4.9).
func variancePct(fd, fc decimal.Decimal) decimal.Decimal {
	diff := fd.Sub(fc).Abs()
	denom := decimal.Max(fd, fc)
	if denom.IsZero() {
		return decimal.Zero
	}
	return diff.Div(denom).Mul(decimal.NewFromInt(100)).Round(2)
}

// checkConservation verifies row-count and sum-of-debits/credits are
// preserved versus input (spec §4.9); on violation it reports an
// integrity warning without mutating data.
func checkConservation(rows []types.CorporateRow, result types.CorporateResult) types.IntegrityCheck {
	outCount := len(result.Batch1) + len(result.Batch2) + len(result.Batch3) + len(result.Batch4) + len(result.Batch5) + len(result.Batch6)

	var inDebit, inCredit decimal.Decimal
	byID := make(map[int64]types.CorporateRow, len(rows))
	for _, row := range rows {
		inDebit = inDebit.Add(row.ForeignDebit)
		inCredit = inCredit.Add(row.ForeignCredit)
		byID[row.RowID] = row
	}

	var outDebit, outCredit decimal.Decimal
	for _, b := range [][]types.BatchRecord{result.Batch1, result.Batch2, result.Batch3, result.Batch4, result.Batch5, result.Batch6} {
		for _, rec := range b {
			row := byID[rec.RowID]
			outDebit = outDebit.Add(row.ForeignDebit)
			outCredit = outCredit.Add(row.ForeignCredit)
		}
	}

	debitDelta := inDebit.Sub(outDebit)
	creditDelta := inCredit.Sub(outCredit)
	rowDelta := len(rows) - outCount

	var details []string
	violated := false
	if rowDelta != 0 {
		violated = true
		details = append(details, "row count drift")
	}
	if debitDelta.Abs().GreaterThan(oneCent) {
		violated = true
		details = append(details, "debit sum drift")
	}
	if creditDelta.Abs().GreaterThan(oneCent) {
		violated = true
		details = append(details, "credit sum drift")
	}

	return types.IntegrityCheck{
		Violated:       violated,
		RowCountDelta:  rowDelta,
		DebitSumDelta:  debitDelta,
		CreditSumDelta: creditDelta,
		Details:        details,
	}
}
