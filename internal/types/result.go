package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchType classifies a MatchRecord.
type MatchType string

const (
	MatchPerfect               MatchType = "perfect"
	MatchFuzzy                 MatchType = "fuzzy"
	MatchForeignCredit         MatchType = "foreign_credit"
	MatchSplitManyLedgerOneStmt MatchType = "split_many_ledger_one_statement"
	MatchSplitOneLedgerManyStmt MatchType = "split_one_ledger_many_statement"
)

// CandidateAudit is a scored-but-not-chosen (or chosen) candidate
// retained for manual review, mirroring the teacher's "topCandidates"
// diagnostic list.
type CandidateAudit struct {
	RowID          int64
	Similarity     int
	AmountVariance decimal.Decimal
}

// MatchRecord is a single reconciled pair or split, per spec §3.
// Cardinalities: perfect/fuzzy/foreign_credit have exactly one row on
// each side; splits have exactly one side of size 1 and the other of
// size >= 2.
type MatchRecord struct {
	LedgerRowIDs    []int64
	StatementRowIDs []int64
	MatchType       MatchType
	Similarity      int
	AmountVariance  decimal.Decimal
	TopCandidates   []CandidateAudit
}

// BatchRecord tags a single Corporate-classifier row with its batch
// and (when applicable) its variance percentage.
type BatchRecord struct {
	RowID       int64
	Batch       int
	VariancePct *decimal.Decimal
}

// ParseWarnings counts cell-level parse failures collected during
// normalisation. Never an error (spec §7).
type ParseWarnings struct {
	FailedDates      int
	FailedAmounts    int
	BlankReferences  int
}

// CacheStats reports similarity-cache effectiveness for one run.
type CacheStats struct {
	Hits   int
	Misses int
}

// IntegrityCheck reports the post-run conservation audit (spec §8.2,
// §4.9). Violated is true when row-count or sum drift was detected;
// the engine never silently corrects, only reports.
type IntegrityCheck struct {
	Violated        bool
	RowCountDelta   int
	DebitSumDelta   decimal.Decimal
	CreditSumDelta  decimal.Decimal
	Details         []string
}

// Diagnostics carries everything spec §7 says must be reported as
// data rather than raised as an error.
type Diagnostics struct {
	RunID          string
	Status         string // "completed" | "cancelled"
	PhaseTimings   map[string]time.Duration
	CacheStats     CacheStats
	LedgerWarnings ParseWarnings
	StmtWarnings   ParseWarnings
	IntegrityCheck IntegrityCheck

	// Overrun records, without failing the run, a skipped split phase
	// and each split sub-phase that reached its record cap. Hitting the
	// per-row fuzzy candidate cap (K) is not recorded here.
	Overrun []string
}

// ReconciliationResult is the engine's public return value.
type ReconciliationResult struct {
	Matched            []MatchRecord
	Splits             []MatchRecord
	ForeignCredits     []MatchRecord
	UnmatchedLedger    []int64
	UnmatchedStatement []int64
	Diagnostics        Diagnostics
}

// CorporateResult is the Corporate classifier's public return value.
type CorporateResult struct {
	RunID                                          string
	Batch1, Batch2, Batch3, Batch4, Batch5, Batch6 []BatchRecord
	IntegrityReport                                IntegrityCheck
}
