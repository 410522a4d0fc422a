package executor

import "sync/atomic"

// Failure records one failed intent for the end-of-run diagnostics.
type Failure struct {
	Key string
	Err error
}

// Result is the aggregate accounting of one execution run. Counters are
// updated through atomics so a progress renderer may read them while the
// run is still going; the failure lists are owned by the executor's single
// accumulator until Execute returns.
type Result struct {
	succeeded uint64
	failed    uint64
	skipped   uint64

	// Failures lists failed intents in completion order.
	Failures []Failure
	// PartialMoves lists moves whose copy succeeded but whose source
	// delete failed. Data now exists at both locations; callers must
	// reconcile manually, so these are surfaced separately from plain
	// failures and never hidden.
	PartialMoves []Failure
}

// Succeeded returns the current success count.
func (r *Result) Succeeded() uint64 { return atomic.LoadUint64(&r.succeeded) }

// Failed returns the current failure count.
func (r *Result) Failed() uint64 { return atomic.LoadUint64(&r.failed) }

// Skipped returns the current skip count.
func (r *Result) Skipped() uint64 { return atomic.LoadUint64(&r.skipped) }

// AddSkipped records intents that were skipped before execution (e.g. the
// diff engine's to-skip half of an upload run).
func (r *Result) AddSkipped(n uint64) { atomic.AddUint64(&r.skipped, n) }

func (r *Result) addSucceeded(n uint64) { atomic.AddUint64(&r.succeeded, n) }
func (r *Result) addFailed(n uint64)    { atomic.AddUint64(&r.failed, n) }
