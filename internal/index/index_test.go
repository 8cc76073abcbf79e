package index

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

func mkRow(id int64, ref string, amount string, date time.Time) types.NormalizedRow {
	d, _ := decimal.NewFromString(amount)
	return types.NormalizedRow{RowID: id, RefNorm: ref, Amount: &d, DateNorm: &date}
}

func TestBuild_ExactRefAndAmount(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := []types.NormalizedRow{
		mkRow(1, "INV-001", "100.00", day),
		mkRow(2, "INV-002", "250.55", day),
	}
	idx := Build(rows, Options{ByExactRef: true, ByAmountExact: true, ByDate: true, AmountMode: types.AmountModeBoth})

	if got := idx.ByExactRef["INV-001"]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("ByExactRef[INV-001] = %v", got)
	}
	cents := types.Cents(decimal.RequireFromString("250.55"))
	if got := idx.ByAmountExact[cents]; len(got) != 1 || got[0] != 2 {
		t.Fatalf("ByAmountExact[%d] = %v", cents, got)
	}
	if got := idx.ByDate["2025-01-05"]; len(got) != 2 {
		t.Fatalf("ByDate = %v, want 2 entries", got)
	}
}

func TestBuild_RefWordSkipsBlanks(t *testing.T) {
	rows := []types.NormalizedRow{
		{RowID: 1, RefNorm: "ACME PAYMENT"},
		{RowID: 2, RefNorm: "__BLANK_2__", RefWasBlank: true},
	}
	idx := Build(rows, Options{ByRefWord: true})
	if got := idx.ByRefWord["ACME"]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("ByRefWord[ACME] = %v", got)
	}
	if got := idx.ByRefWord["BLANK"]; len(got) != 0 {
		t.Fatalf("expected blank row to not contribute words, got %v", got)
	}
}

func TestBuild_AmountBucketGroupsByThousand(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := []types.NormalizedRow{
		mkRow(1, "A", "1250.00", day),
		mkRow(2, "B", "1999.00", day),
		mkRow(3, "C", "2000.00", day),
	}
	idx := Build(rows, Options{ByAmountBucket: true, AmountMode: types.AmountModeBoth})
	if len(idx.ByAmountBucket[1000]) != 2 {
		t.Fatalf("bucket 1000 = %v, want 2 entries", idx.ByAmountBucket[1000])
	}
	if len(idx.ByAmountBucket[2000]) != 1 {
		t.Fatalf("bucket 2000 = %v, want 1 entry", idx.ByAmountBucket[2000])
	}
}
