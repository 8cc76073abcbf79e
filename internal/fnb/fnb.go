// Package fnb implements the four sequential FNB matching phases
// (spec §4.4-§4.7): perfect match, fuzzy match, foreign-credit match,
// and split-transaction detection. Each phase operates only on rows
// not yet marked used by an earlier phase, mirroring the disjoint-set
// bookkeeping style of the teacher's invoice_cache.go candidate
// tracking, generalised to two-sided ledger/statement disjointness.
package fnb

import (
	"sort"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/index"
	"reconciliation-engine/internal/similarity"
	"reconciliation-engine/internal/types"
)

// Context bundles the state shared across all four phases for one
// reconciliation run: the two row sets, their indexes, the shared
// similarity cache, active settings, and disjoint-set "used" marks.
type Context struct {
	LedgerRows []types.NormalizedRow
	StmtRows   []types.NormalizedRow

	LedgerIdx *index.Indexer
	StmtIdx   *index.Indexer

	Cache *similarity.Cache

	Settings types.Settings

	LedgerUsed map[int64]bool
	StmtUsed   map[int64]bool

	progressEmitted map[string]int
}

// NewContext builds a fresh Context ready for phase execution.
func NewContext(ledgerRows, stmtRows []types.NormalizedRow, ledgerIdx, stmtIdx *index.Indexer, cache *similarity.Cache, settings types.Settings) *Context {
	return &Context{
		LedgerRows:      ledgerRows,
		StmtRows:        stmtRows,
		LedgerIdx:       ledgerIdx,
		StmtIdx:         stmtIdx,
		Cache:           cache,
		Settings:        settings,
		LedgerUsed:      make(map[int64]bool, len(ledgerRows)),
		StmtUsed:        make(map[int64]bool, len(stmtRows)),
		progressEmitted: make(map[string]int),
	}
}

// Cancelled reports whether the caller has asked for cooperative
// cancellation (spec §5). Safe to call with a nil CancelFlag.
func (c *Context) Cancelled() bool {
	return c.Settings.CancelFlag != nil && c.Settings.CancelFlag()
}

// ReportProgress invokes the caller's progress callback at bounded
// frequency: at most once per 1% of total or per 100 items, whichever
// is less often (spec §5). Safe to call with a nil ProgressCB.
func (c *Context) ReportProgress(phase string, current, total int) {
	if c.Settings.ProgressCB == nil || total <= 0 {
		return
	}
	interval := total / 100
	if interval < 100 {
		interval = 100
	}
	last, seen := c.progressEmitted[phase]
	if !seen || current-last >= interval || current == total {
		c.progressEmitted[phase] = current
		c.Settings.ProgressCB(phase, current, total)
	}
}

// markMatched records a 1:1 match's rows as used on both sides. Used
// by phases 1a, 1b, and 2; split phases mark multi-row sides
// themselves.
func (c *Context) markMatched(ledgerID, stmtID int64) {
	c.LedgerUsed[ledgerID] = true
	c.StmtUsed[stmtID] = true
}

// MarkMatched exposes markMatched to the optional sharded-matching
// runner (internal/worker), whose commit step must be able to mark
// rows used after independently computing each shard's candidates.
func (c *Context) MarkMatched(ledgerID, stmtID int64) {
	c.markMatched(ledgerID, stmtID)
}

// FirstUnmatchedLedger exposes firstUnmatchedLedger for the same
// reason: the sharded commit step re-applies "first unmatched in
// stable order" itself, serially, after parallel candidate discovery.
func (c *Context) FirstUnmatchedLedger(candidates []int64) (int64, bool) {
	return firstUnmatchedLedger(c, candidates)
}

// PerfectCandidates exposes perfectCandidates to the sharded runner.
func (c *Context) PerfectCandidates(stmt *types.NormalizedRow) []int64 {
	return perfectCandidates(c, stmt)
}

// sortedStmtRowIDs returns statement row ids in input order, the
// stable iteration order every phase relies on for determinism.
func (c *Context) sortedStmtRowIDs() []int64 {
	ids := make([]int64, len(c.StmtRows))
	for i, r := range c.StmtRows {
		ids[i] = r.RowID
	}
	return ids
}

func (c *Context) sortedLedgerRowIDs() []int64 {
	ids := make([]int64, len(c.LedgerRows))
	for i, r := range c.LedgerRows {
		ids[i] = r.RowID
	}
	return ids
}

// intersectSorted intersects any number of row_id lists, preserving
// the relative order of the first (base) list so "first unmatched in
// stable order" selection stays deterministic downstream.
func intersectSorted(lists ...[]int64) []int64 {
	if len(lists) == 0 {
		return nil
	}
	base := lists[0]
	if len(lists) == 1 {
		return append([]int64(nil), base...)
	}
	sets := make([]map[int64]bool, len(lists)-1)
	for i, l := range lists[1:] {
		set := make(map[int64]bool, len(l))
		for _, id := range l {
			set[id] = true
		}
		sets[i] = set
	}
	out := make([]int64, 0, len(base))
	for _, id := range base {
		ok := true
		for _, s := range sets {
			if !s[id] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// dedupePreserveOrder removes duplicate row ids while keeping first
// occurrence order, used when union-ing multiple date-tolerance keys
// or ref-word candidate lists.
func dedupePreserveOrder(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// amountVariance returns |a| - |b| expressed as an absolute decimal,
// used for tie-breaking and diagnostic variance fields.
func amountVariance(a, b decimal.Decimal) decimal.Decimal {
	return a.Abs().Sub(b.Abs()).Abs()
}

// sortByRowID gives a deterministic fallback order when two
// candidates otherwise tie.
func sortByRowID(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
