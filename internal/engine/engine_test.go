package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"reconciliation-engine/internal/types"
)

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ledgerMapping() types.ColumnMapping {
	return types.ColumnMapping{Date: "date", Reference: "reference", Debit: "debit", Credit: "credit", Description: "description"}
}

func stmtMapping() types.ColumnMapping {
	return types.ColumnMapping{Date: "date", Reference: "reference", Amount: "amount", Description: "description"}
}

func TestReconcile_EndToEndPerfectAndUnmatched(t *testing.T) {
	ledgerRaw := []types.RawRow{
		{"date": "2025-01-05", "reference": "INV-001", "debit": "1234.56", "credit": "", "description": "invoice 1"},
		{"date": "2025-01-06", "reference": "INV-002", "debit": "500.00", "credit": "", "description": "invoice 2"},
	}
	stmtRaw := []types.RawRow{
		{"date": "2025-01-05", "reference": "INV-001", "amount": "1234.56", "description": "payment"},
	}

	settings := types.DefaultSettings()
	result, err := Reconcile(ledgerRaw, stmtRaw, ledgerMapping(), stmtMapping(), settings)
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	require.Equal(t, types.MatchPerfect, result.Matched[0].MatchType)
	require.Equal(t, []int64{1}, result.UnmatchedLedger)
	require.Empty(t, result.UnmatchedStatement)
	require.False(t, result.Diagnostics.IntegrityCheck.Violated)
	require.Equal(t, "completed", result.Diagnostics.Status)
}

func TestReconcile_RejectsInvalidSettings(t *testing.T) {
	settings := types.DefaultSettings()
	settings.DateToleranceDays = 5
	_, err := Reconcile(nil, nil, ledgerMapping(), stmtMapping(), settings)
	require.ErrorIs(t, err, types.ErrInvalidDateTolerance)
}

func TestReconcile_MissingReferenceColumnErrors(t *testing.T) {
	ledgerRaw := []types.RawRow{{"date": "2025-01-05", "debit": "100.00"}}
	stmtRaw := []types.RawRow{{"date": "2025-01-05", "amount": "100.00", "reference": "X"}}

	badMapping := types.ColumnMapping{Date: "date", Debit: "debit"}
	_, err := Reconcile(ledgerRaw, stmtRaw, badMapping, stmtMapping(), types.DefaultSettings())
	require.ErrorIs(t, err, types.ErrMissingColumn)
}

func TestReconcile_CancelledBeforeAnyPhaseReturnsPartial(t *testing.T) {
	ledgerRaw := []types.RawRow{{"date": "2025-01-05", "reference": "INV-001", "debit": "100.00", "credit": ""}}
	stmtRaw := []types.RawRow{{"date": "2025-01-05", "reference": "INV-001", "amount": "100.00"}}

	settings := types.DefaultSettings()
	settings.CancelFlag = func() bool { return true }

	result, err := Reconcile(ledgerRaw, stmtRaw, ledgerMapping(), stmtMapping(), settings)
	require.NoError(t, err)
	require.Equal(t, "cancelled", result.Diagnostics.Status)
	require.Empty(t, result.Matched)
}

func TestClassifyCorporate_IntegratesWithEngine(t *testing.T) {
	rows := []types.CorporateRow{
		{RowID: 1, Reference: "A100", JournalNumber: "", ForeignDebit: mustDecimal("100"), ForeignCredit: mustDecimal("100")},
	}
	settings := types.CorporateSettings{PercentThreshold: 5, Tolerance: mustDecimal("0.01")}
	result := ClassifyCorporate(rows, settings)
	require.Len(t, result.Batch2, 1)
	require.False(t, result.IntegrityReport.Violated)
}
