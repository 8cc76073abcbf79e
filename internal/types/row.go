// Package types holds the data model shared across the reconciliation
// engine: raw rows as delivered by a caller, their normalised form, the
// settings that parameterise a run, and the match/batch records the
// engine emits.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountMode restricts which side of a ledger row participates in
// amount-based matching.
type AmountMode string

const (
	AmountModeBoth    AmountMode = "both"
	AmountModeDebits  AmountMode = "debits"
	AmountModeCredits AmountMode = "credits"
)

// RawRow is a single input record as delivered by the caller's row
// source: column name to cell value. Cells may already be typed
// (time.Time, float64) or may be plain strings; the Normalizer accepts
// both.
type RawRow map[string]any

// ColumnMapping names which columns of a RawRow carry which logical
// field, for one side (ledger or statement) of the input.
type ColumnMapping struct {
	Date        string
	Reference   string
	Debit       string
	Credit      string
	Amount      string
	Description string
}

// Row is a raw ledger or statement entry after column extraction but
// before normalisation. Nil pointers mean the value was absent or
// failed to parse.
type Row struct {
	RowID       int64
	Date        *time.Time
	Reference   *string
	Debit       *decimal.Decimal
	Credit      *decimal.Decimal
	Amount      *decimal.Decimal
	Description string
	Raw         RawRow
}

// NormalizedRow is the immutable, canonical form of a Row produced by
// the Normalizer. It is never mutated after indexing.
type NormalizedRow struct {
	RowID int64

	// DateNorm is the calendar date at day precision, or nil if the
	// row had no date or it failed to parse.
	DateNorm *time.Time

	// RefNorm is the upper-cased, whitespace-collapsed reference, or
	// a synthetic "__BLANK_<row_id>__" marker if the original
	// reference was blank/"nan"/"none"/"null"/"0".
	RefNorm string

	// RefWasBlank records whether RefNorm is a synthetic marker.
	RefWasBlank bool

	// Debit/Credit are set for ledger rows (non-negative when present).
	Debit *decimal.Decimal
	Credit *decimal.Decimal

	// Amount is set for statement rows (signed).
	Amount *decimal.Decimal

	Description string
	Raw         RawRow
}

// EffectiveAmount returns the amount this row should be compared on,
// given an amount matching mode. Statement rows always compare on
// Amount directly regardless of mode; the mode only restricts which
// side of a ledger row is eligible. Ledger values are returned as
// stored (not negated): "debits" yields Debit, "credits" yields
// Credit, and "both" yields Debit when it is present and non-zero (or
// when there is no Credit), otherwise Credit.
func (r NormalizedRow) EffectiveAmount(mode AmountMode) *decimal.Decimal {
	if r.Amount != nil {
		return r.Amount
	}
	switch mode {
	case AmountModeDebits:
		return r.Debit
	case AmountModeCredits:
		return r.Credit
	default: // both
		if r.Debit != nil && (!r.Debit.IsZero() || r.Credit == nil) {
			return r.Debit
		}
		return r.Credit
	}
}

// AbsAmount returns |EffectiveAmount|, or nil if there is none.
func (r NormalizedRow) AbsAmount(mode AmountMode) *decimal.Decimal {
	amt := r.EffectiveAmount(mode)
	if amt == nil {
		return nil
	}
	v := amt.Abs()
	return &v
}

// Cents rounds a decimal to 2 places and returns it as integer cents,
// used as the key for exact-amount indexing and for subset-sum math.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
