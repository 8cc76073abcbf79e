// Package index builds hash maps over normalised rows for O(1)
// candidate lookup by exact reference, reference word, date, exact
// amount, and amount bucket (spec §4.2). Only the indexes required by
// the active matching criteria are materialised.
package index

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/types"
)

// AmountBucketEntry is one row's contribution to an amount bucket,
// retaining the exact amount for split pre-filtering.
type AmountBucketEntry struct {
	RowID  int64
	Amount decimal.Decimal
}

// Options controls which indexes get built, matching the active
// reconcile() criteria so the engine never pays for an index it won't
// query.
type Options struct {
	ByExactRef     bool
	ByRefWord      bool
	ByDate         bool
	ByAmountExact  bool
	ByAmountBucket bool

	// AmountMode selects which decimal EffectiveAmount computes from a
	// ledger row; ignored for statement rows (which always use their
	// own signed Amount).
	AmountMode types.AmountMode
}

// Indexer holds the built indexes plus the row table they were built
// from, keyed by RowID.
type Indexer struct {
	Rows map[int64]*types.NormalizedRow

	ByExactRef     map[string][]int64
	ByRefWord      map[string][]int64
	ByDate         map[string][]int64
	ByAmountExact  map[int64][]int64
	ByAmountBucket map[int64][]AmountBucketEntry
}

const bucketSize = 1000

// Build constructs an Indexer over rows in O(n). Row iteration and
// the resulting per-key lists preserve input order, which downstream
// phases rely on for deterministic "first unmatched wins" selection.
func Build(rows []types.NormalizedRow, opts Options) *Indexer {
	idx := &Indexer{
		Rows: make(map[int64]*types.NormalizedRow, len(rows)),
	}
	if opts.ByExactRef {
		idx.ByExactRef = make(map[string][]int64)
	}
	if opts.ByRefWord {
		idx.ByRefWord = make(map[string][]int64)
	}
	if opts.ByDate {
		idx.ByDate = make(map[string][]int64)
	}
	if opts.ByAmountExact {
		idx.ByAmountExact = make(map[int64][]int64)
	}
	if opts.ByAmountBucket {
		idx.ByAmountBucket = make(map[int64][]AmountBucketEntry)
	}

	for i := range rows {
		row := &rows[i]
		idx.Rows[row.RowID] = row

		if opts.ByExactRef {
			idx.ByExactRef[row.RefNorm] = append(idx.ByExactRef[row.RefNorm], row.RowID)
		}
		if opts.ByRefWord && !row.RefWasBlank {
			for _, word := range referenceWords(row.RefNorm) {
				idx.ByRefWord[word] = append(idx.ByRefWord[word], row.RowID)
			}
		}
		if opts.ByDate && row.DateNorm != nil {
			key := row.DateNorm.Format("2006-01-02")
			idx.ByDate[key] = append(idx.ByDate[key], row.RowID)
		}
		amt := row.EffectiveAmount(opts.AmountMode)
		if amt != nil {
			if opts.ByAmountExact {
				cents := types.Cents(*amt)
				idx.ByAmountExact[cents] = append(idx.ByAmountExact[cents], row.RowID)
			}
			if opts.ByAmountBucket {
				bucket := bucketFor(*amt)
				idx.ByAmountBucket[bucket] = append(idx.ByAmountBucket[bucket], AmountBucketEntry{RowID: row.RowID, Amount: *amt})
			}
		}
	}

	return idx
}

// referenceWords extracts alphabetic tokens of length >= 3 from a
// normalized (already upper-cased) reference, used to pre-filter
// fuzzy candidates via the word index.
func referenceWords(refNorm string) []string {
	fields := strings.FieldsFunc(refNorm, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z')
	})
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

func bucketFor(amount decimal.Decimal) int64 {
	absCents := amount.Abs().Mul(decimal.NewFromInt(100)).IntPart()
	absUnits := absCents / 100
	return (absUnits / bucketSize) * bucketSize
}

// DatesWithinTolerance returns the date keys to probe for a date,
// expanding to +-1 day when toleranceDays == 1.
func DatesWithinTolerance(d time.Time, toleranceDays int) []string {
	keys := []string{d.Format("2006-01-02")}
	if toleranceDays >= 1 {
		keys = append(keys, d.AddDate(0, 0, -1).Format("2006-01-02"), d.AddDate(0, 0, 1).Format("2006-01-02"))
	}
	return keys
}
