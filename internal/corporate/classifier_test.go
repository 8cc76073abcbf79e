package corporate

import (
	"testing"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// Scenario 5: six rows across three references (R1, blank, R2),
// percent_threshold=7.
func TestClassify_Scenario5(t *testing.T) {
	rows := []types.CorporateRow{
		{RowID: 1, Reference: "R1", ForeignDebit: mustDecimal(t, "100"), ForeignCredit: mustDecimal(t, "100")},
		{RowID: 2, Reference: "R1", ForeignDebit: mustDecimal(t, "105"), ForeignCredit: mustDecimal(t, "100")},
		{RowID: 3, Reference: "R1", ForeignDebit: mustDecimal(t, "100"), ForeignCredit: mustDecimal(t, "105")},
		{RowID: 4, Reference: "R1", ForeignDebit: mustDecimal(t, "100.50"), ForeignCredit: mustDecimal(t, "100")},
		{RowID: 5, Reference: "", ForeignDebit: mustDecimal(t, "50"), ForeignCredit: mustDecimal(t, "0")},
		{RowID: 6, Reference: "R2", ForeignDebit: mustDecimal(t, "10"), ForeignCredit: mustDecimal(t, "10")},
	}
	settings := types.CorporateSettings{PercentThreshold: 7}

	result := Classify(rows, settings)

	assertBatchIDs(t, "Batch2", result.Batch2, []int64{1, 6})
	assertBatchIDs(t, "Batch3", result.Batch3, []int64{2})
	assertBatchIDs(t, "Batch4", result.Batch4, []int64{3})
	assertBatchIDs(t, "Batch5", result.Batch5, []int64{4})
	assertBatchIDs(t, "Batch6", result.Batch6, []int64{5})
	if len(result.Batch1) != 0 {
		t.Fatalf("expected empty Batch1, got %v", result.Batch1)
	}

	wantVariance := "4.76"
	if result.Batch3[0].VariancePct == nil || result.Batch3[0].VariancePct.String() != wantVariance {
		t.Fatalf("Batch3 variance = %v, want %s", result.Batch3[0].VariancePct, wantVariance)
	}
	if result.Batch4[0].VariancePct == nil || result.Batch4[0].VariancePct.String() != wantVariance {
		t.Fatalf("Batch4 variance = %v, want %s", result.Batch4[0].VariancePct, wantVariance)
	}

	if result.IntegrityReport.Violated {
		t.Fatalf("expected no integrity violation, got %+v", result.IntegrityReport)
	}
}

func TestClassify_BlankReferenceAlwaysBatch6(t *testing.T) {
	rows := []types.CorporateRow{
		{RowID: 1, Reference: "", ForeignDebit: mustDecimal(t, "75"), ForeignCredit: mustDecimal(t, "75")},
		{RowID: 2, Reference: "NONE", ForeignDebit: mustDecimal(t, "75"), ForeignCredit: mustDecimal(t, "75")},
	}
	result := Classify(rows, types.CorporateSettings{PercentThreshold: 7})
	assertBatchIDs(t, "Batch6", result.Batch6, []int64{1, 2})
}

func TestClassify_CorrectingMatchesJournalIndex(t *testing.T) {
	rows := []types.CorporateRow{
		{RowID: 1, Reference: "CORRECTING JE 4021", ForeignDebit: mustDecimal(t, "500"), ForeignCredit: mustDecimal(t, "0")},
		{RowID: 2, Reference: "R9", JournalNumber: "4021", ForeignDebit: mustDecimal(t, "500"), ForeignCredit: mustDecimal(t, "500")},
	}
	result := Classify(rows, types.CorporateSettings{PercentThreshold: 7})
	assertBatchIDs(t, "Batch1", result.Batch1, []int64{1})
}

func assertBatchIDs(t *testing.T, name string, got []types.BatchRecord, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want row ids %v", name, got, want)
	}
	for i, rec := range got {
		if rec.RowID != want[i] {
			t.Fatalf("%s[%d].RowID = %d, want %d", name, i, rec.RowID, want[i])
		}
	}
}
