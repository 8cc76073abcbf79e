package normalize

import (
	"testing"

	"reconciliation-engine/internal/types"
)

func TestNormalizeReference_Blank(t *testing.T) {
	cases := []string{"", "nan", "NONE", "Null", "0", "  "}
	for _, c := range cases {
		ref, blank := NormalizeReference(c, 7)
		if !blank {
			t.Errorf("NormalizeReference(%q) expected blank", c)
		}
		if ref != "__BLANK_7__" {
			t.Errorf("NormalizeReference(%q) = %q, want __BLANK_7__", c, ref)
		}
	}
}

func TestNormalizeReference_DistinctBlanksNeverCollide(t *testing.T) {
	ref1, _ := NormalizeReference("", 1)
	ref2, _ := NormalizeReference("", 2)
	if ref1 == ref2 {
		t.Fatalf("two blank references produced the same synthetic marker: %q", ref1)
	}
}

func TestNormalizeReference_CollapsesWhitespace(t *testing.T) {
	ref, blank := NormalizeReference("  inv  001  ", 1)
	if blank {
		t.Fatal("expected non-blank")
	}
	if ref != "INV 001" {
		t.Errorf("got %q, want %q", ref, "INV 001")
	}
}

func TestParseAmount_CurrencyAndThousands(t *testing.T) {
	d, ok := ParseAmount("R 1,234.56")
	if !ok {
		t.Fatal("expected parse success")
	}
	if got := d.String(); got != "1234.56" {
		t.Errorf("got %s, want 1234.56", got)
	}
}

func TestParseAmount_Parentheses(t *testing.T) {
	d, ok := ParseAmount("(1,234.56)")
	if !ok {
		t.Fatal("expected parse success")
	}
	if got := d.String(); got != "-1234.56" {
		t.Errorf("got %s, want -1234.56", got)
	}
}

func TestParseAmount_LeadingApostrophe(t *testing.T) {
	d, ok := ParseAmount("'500.00")
	if !ok {
		t.Fatal("expected parse success")
	}
	if got := d.String(); got != "500.00" && got != "500" {
		t.Errorf("got %s, want 500", got)
	}
}

func TestParseAmount_FailureIsNilNotZero(t *testing.T) {
	d, ok := ParseAmount("not-a-number")
	if ok || d != nil {
		t.Fatalf("expected failure to yield (nil, false), got (%v, %v)", d, ok)
	}
}

func TestNormalize_StatementScenario1(t *testing.T) {
	mapping := types.ColumnMapping{Date: "date", Reference: "ref", Amount: "amount"}
	n := New(mapping, false)

	rows := []types.RawRow{
		{"date": "2025-01-05", "ref": "INV-001", "amount": "R 1,234.56"},
	}
	normalized, warnings, err := n.Normalize(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warnings.FailedAmounts != 0 || warnings.FailedDates != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if normalized[0].Amount == nil || normalized[0].Amount.String() != "1234.56" {
		t.Fatalf("amount = %v, want 1234.56", normalized[0].Amount)
	}
	if normalized[0].RefNorm != "INV-001" {
		t.Fatalf("ref = %q, want INV-001", normalized[0].RefNorm)
	}
}

func TestNormalize_MissingMandatoryColumnIsStructural(t *testing.T) {
	mapping := types.ColumnMapping{Reference: "ref"} // no amount column
	n := New(mapping, false)
	_, _, err := n.Normalize([]types.RawRow{{"ref": "X"}})
	if err == nil {
		t.Fatal("expected structural error for missing amount column")
	}
}

func TestNormalize_ZeroRowsIsStructural(t *testing.T) {
	mapping := types.ColumnMapping{Reference: "ref", Amount: "amount"}
	n := New(mapping, false)
	_, _, err := n.Normalize(nil)
	if err == nil {
		t.Fatal("expected structural error for zero rows")
	}
}

func TestNormalize_AmbiguousDateColumnVotesMajorityFormat(t *testing.T) {
	mapping := types.ColumnMapping{Date: "date", Reference: "ref", Amount: "amount"}
	n := New(mapping, false)
	rows := []types.RawRow{
		{"date": "2025-01-05", "ref": "A", "amount": "1"},
		{"date": "2025-02-10", "ref": "B", "amount": "1"},
		{"date": "2025-03-20", "ref": "C", "amount": "1"},
		{"date": "not-a-date", "ref": "D", "amount": "1"},
	}
	normalized, warnings, err := n.Normalize(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warnings.FailedDates != 1 {
		t.Fatalf("expected 1 failed date, got %d", warnings.FailedDates)
	}
	if normalized[0].DateNorm == nil || normalized[0].DateNorm.Year() != 2025 {
		t.Fatalf("expected parsed ISO date, got %v", normalized[0].DateNorm)
	}
}
