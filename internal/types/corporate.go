package types

import "github.com/shopspring/decimal"

// CorporateRow is one row of the Corporate Settlements input table
// (spec §4.9): a foreign debit, a foreign credit, a reference, and an
// optional journal number used by the CORRECTING batch lookup.
type CorporateRow struct {
	RowID         int64
	Reference     string
	JournalNumber string
	ForeignDebit  decimal.Decimal
	ForeignCredit decimal.Decimal
}

// CorporateSettings configures the Corporate classifier (spec §6).
type CorporateSettings struct {
	PercentThreshold float64
	Tolerance        decimal.Decimal
}
