// Package worker runs the FNB perfect-match phase concurrently by
// statement-row sharding (spec §9 concurrency model): each shard is a
// contiguous partition of statement rows, processed by its own
// goroutine against the shared, immutable indexes. Shards only read;
// a single, deterministic commit step afterwards resolves cross-shard
// ledger conflicts by a stable first-wins rule, preserving the same
// result a single-threaded run would produce.
//
// This mirrors the teacher's job lifecycle (queued/processing/
// completed/failed/cancelled) from the original database-polling
// worker, adapted from a Postgres job queue to an in-memory shard
// pool since the engine itself does no I/O (spec §5).
package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"reconciliation-engine/internal/fnb"
	"reconciliation-engine/internal/types"
)

// ShardStatus mirrors the teacher's reconciliation_jobs status
// vocabulary, now describing one shard's lifecycle instead of a
// database row's.
type ShardStatus string

const (
	ShardQueued     ShardStatus = "queued"
	ShardProcessing ShardStatus = "processing"
	ShardCompleted  ShardStatus = "completed"
	ShardFailed     ShardStatus = "failed"
	ShardCancelled  ShardStatus = "cancelled"
)

// Shard is one statement-row partition and its lifecycle state. JobID
// identifies the shard across logs the way the teacher's job queue
// keyed each polled row by its database-assigned uuid.
type Shard struct {
	ID        int
	JobID     string
	Status    ShardStatus
	StmtRowID []int64
	Attempts  int
	LastError error
	StartedAt time.Time
	Duration  time.Duration
}

// shardCandidates is a shard's read-only output: for every statement
// row it owns, the ordered ledger candidate list perfectCandidates
// would have produced in a single-threaded run.
type shardCandidates struct {
	stmtRowID  int64
	candidates []int64
}

// Runner drives sharded perfect-match execution over a shared
// fnb.Context. The Context's indexes are built once and never
// mutated by shards; only the serial commit step writes to
// LedgerUsed/StmtUsed.
type Runner struct {
	Ctx       *fnb.Context
	NumShards int
}

// NewRunner returns a Runner with at least one shard.
func NewRunner(ctx *fnb.Context, numShards int) *Runner {
	if numShards < 1 {
		numShards = 1
	}
	return &Runner{Ctx: ctx, NumShards: numShards}
}

// RunPerfectSharded partitions ctx.StmtRows into NumShards contiguous
// ranges, computes perfect-match candidates for each row in parallel,
// then commits matches serially in original statement-row order so
// the result is byte-identical to fnb.RunPerfect's single-threaded
// output (spec §9 "a single-threaded commit step ... resolves
// cross-shard ledger conflicts by stable first-wins rule").
func (r *Runner) RunPerfectSharded() ([]types.MatchRecord, []Shard) {
	stmtRows := r.Ctx.StmtRows
	shards := partition(len(stmtRows), r.NumShards)

	results := make([][]shardCandidates, len(shards))
	statuses := make([]Shard, len(shards))
	var wg sync.WaitGroup

	for i, rng := range shards {
		i, rng := i, rng
		statuses[i] = Shard{ID: i, JobID: uuid.NewString(), Status: ShardQueued, Attempts: 1}
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i].Status = ShardProcessing
			statuses[i].StartedAt = time.Now()

			if r.Ctx.Cancelled() {
				statuses[i].Status = ShardCancelled
				return
			}

			out := make([]shardCandidates, 0, rng.end-rng.start)
			for _, stmt := range stmtRows[rng.start:rng.end] {
				out = append(out, shardCandidates{
					stmtRowID:  stmt.RowID,
					candidates: r.Ctx.PerfectCandidates(&stmt),
				})
			}
			results[i] = out
			statuses[i].Status = ShardCompleted
			statuses[i].Duration = time.Since(statuses[i].StartedAt)
		}()
	}
	wg.Wait()

	candidatesByStmt := make(map[int64][]int64, len(stmtRows))
	for _, shardOut := range results {
		for _, sc := range shardOut {
			candidatesByStmt[sc.stmtRowID] = sc.candidates
		}
	}

	var out []types.MatchRecord
	for _, stmt := range stmtRows {
		candidates, ok := candidatesByStmt[stmt.RowID]
		if !ok || r.Ctx.StmtUsed[stmt.RowID] {
			continue
		}
		ledgerID, found := r.Ctx.FirstUnmatchedLedger(candidates)
		if !found {
			continue
		}
		out = append(out, types.MatchRecord{
			LedgerRowIDs:    []int64{ledgerID},
			StatementRowIDs: []int64{stmt.RowID},
			MatchType:       types.MatchPerfect,
			Similarity:      100,
		})
		r.Ctx.MarkMatched(ledgerID, stmt.RowID)
	}

	return out, statuses
}

type rowRange struct{ start, end int }

// partition splits [0,n) into at most numShards contiguous, roughly
// equal ranges, preserving input order within and across shards.
func partition(n, numShards int) []rowRange {
	if n == 0 {
		return nil
	}
	if numShards > n {
		numShards = n
	}
	base := n / numShards
	rem := n % numShards

	ranges := make([]rowRange, 0, numShards)
	start := 0
	for i := 0; i < numShards; i++ {
		size := base
		if i < rem {
			size++
		}
		ranges = append(ranges, rowRange{start: start, end: start + size})
		start += size
	}
	return ranges
}
