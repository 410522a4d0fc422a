// Package executor applies a mutation plan against the object store:
// strictly ordered consumption, batched deletes, a bounded worker pool for
// per-object operations and per-item failure isolation.
package executor

import (
	"context"
	"fmt"

	"github.com/larrabee/ratelimit"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/s3batch/s3batch/plan"
	"github.com/s3batch/s3batch/storage"
)

// BatchDeleteLimit is the store API cap on keys per batch delete call.
const BatchDeleteLimit = 1000

// Log implement Logrus logger for execution logging.
var Log = logrus.New()

// CopyFunc issues one server-side copy. The default copies inside the
// target storage; migrations install a cross-bucket copy instead.
type CopyFunc func(srcKey, dstKey string) error

// Options tune one execution run.
type Options struct {
	// Workers bounds the pool applying copy/move/upload intents. Delete
	// batches are issued by the feeding goroutine itself.
	Workers uint
	// RateLimitObjPerSec slows intent dispatch when non-zero.
	RateLimitObjPerSec uint
}

// Executor applies intents. src owns every SrcKey (the upload source tree,
// or the source bucket of a migration), dst receives copies and uploads.
// For in-bucket operations src and dst are the same storage.
type Executor struct {
	src  storage.Storage
	dst  storage.Storage
	copy CopyFunc
}

// New returns an executor mutating a single storage.
func New(st storage.Storage) *Executor {
	return &Executor{src: st, dst: st, copy: st.CopyObject}
}

// NewTransfer returns an executor reading from src and writing to dst,
// copying via copyFn. Move intents still delete their source from src.
func NewTransfer(src, dst storage.Storage, copyFn CopyFunc) *Executor {
	return &Executor{src: src, dst: dst, copy: copyFn}
}

type outcome struct {
	key      string
	n        uint64
	err      error
	skipped  bool
	partial  error
	terminal error
}

// Execute consumes the plan in order, folding the accounting into res.
// Contiguous delete intents are chunked into batches of at most
// BatchDeleteLimit keys; other intents go through the worker pool one at a
// time. No intent is retried and no per-item failure aborts the run; only
// an authentication-level error does, returned as the terminal run error.
// Cancelling ctx stops new intents from being issued, in-flight calls
// complete and are counted. res is caller-owned so a progress renderer may
// watch its counters while the run is going.
func (e *Executor) Execute(ctx context.Context, p plan.Plan, opts Options, res *Result) error {
	if len(p) == 0 {
		return nil
	}

	workers := opts.Workers
	if workers == 0 {
		workers = 1
	}

	var rlBucket ratelimit.Bucket = ratelimit.NewFakeBucket()
	if opts.RateLimitObjPerSec > 0 {
		bucket, err := ratelimit.NewBucketWithRate(float64(opts.RateLimitObjPerSec), int64(opts.RateLimitObjPerSec*2))
		if err != nil {
			return err
		}
		rlBucket = bucket
	}

	jobs := make(chan plan.Intent)
	outcomes := make(chan outcome, workers)

	grp, wctx := errgroup.WithContext(ctx)
	for w := uint(0); w < workers; w++ {
		grp.Go(func() error {
			for in := range jobs {
				o := e.apply(in)
				outcomes <- o
				if o.terminal != nil {
					return o.terminal
				}
			}
			return nil
		})
	}

	accDone := make(chan struct{})
	go func() {
		defer close(accDone)
		for o := range outcomes {
			switch {
			case o.err != nil:
				res.addFailed(o.n)
				res.Failures = append(res.Failures, Failure{Key: o.key, Err: o.err})
			case o.skipped:
				res.AddSkipped(o.n)
			default:
				res.addSucceeded(o.n)
			}
			if o.partial != nil {
				res.PartialMoves = append(res.PartialMoves, Failure{Key: o.key, Err: o.partial})
			}
		}
	}()

	var feedTerminal error
	batch := make([]plan.Intent, 0, BatchDeleteLimit)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		feedTerminal = e.applyDeleteBatch(batch, outcomes)
		batch = batch[:0]
		return feedTerminal == nil
	}

feed:
	for _, in := range p {
		select {
		case <-wctx.Done():
			break feed
		default:
		}
		rlBucket.Wait(1)

		if in.Op == plan.OpDelete {
			batch = append(batch, in)
			if len(batch) == BatchDeleteLimit {
				if !flush() {
					break feed
				}
			}
			continue
		}

		// A non-delete intent closes the current batch so the plan
		// order is preserved.
		if !flush() {
			break feed
		}

		select {
		case jobs <- in:
		case <-wctx.Done():
			break feed
		}
	}
	if wctx.Err() == nil {
		flush()
	}
	close(jobs)

	terminal := grp.Wait()
	if terminal == nil {
		terminal = feedTerminal
	}
	close(outcomes)
	<-accDone

	if terminal != nil {
		return terminal
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// apply executes one non-delete intent and classifies its outcome.
func (e *Executor) apply(in plan.Intent) outcome {
	o := outcome{key: in.SrcKey, n: 1}
	Log.Infof("%s", in.Describe())

	switch in.Op {
	case plan.OpCopy:
		if err := e.copy(in.SrcKey, in.DstKey); err != nil {
			if storage.IsErrNotExist(err) {
				// Source vanished after the scan; nothing to do.
				Log.Warnf("Skip missing object: %s", in.SrcKey)
				o.skipped = true
				break
			}
			o.err = fmt.Errorf("copy to %s: %w", in.DstKey, err)
		}
	case plan.OpMove:
		// Copy must succeed before the source may be touched. A failed
		// copy never triggers the delete, so the source survives.
		if err := e.copy(in.SrcKey, in.DstKey); err != nil {
			if storage.IsErrNotExist(err) {
				Log.Warnf("Skip missing object: %s", in.SrcKey)
				o.skipped = true
				break
			}
			o.err = fmt.Errorf("copy to %s: %w", in.DstKey, err)
			break
		}
		if err := e.src.DeleteObject(in.SrcKey); err != nil {
			// Copied but not removed: data now lives at both keys.
			o.partial = fmt.Errorf("copied to %s but source delete failed: %w", in.DstKey, err)
			if storage.IsErrAuth(err) {
				o.terminal = err
			}
		}
	case plan.OpUpload:
		key := in.SrcKey
		obj := &storage.Object{Key: &key}
		if err := e.src.GetObjectContent(obj); err != nil {
			o.err = fmt.Errorf("read local %s: %w", in.SrcKey, err)
			return o
		}
		dstKey := in.DstKey
		obj.Key = &dstKey
		if err := e.dst.PutObject(obj); err != nil {
			o.err = fmt.Errorf("upload to %s: %w", in.DstKey, err)
		}
	default:
		o.err = fmt.Errorf("unexpected intent op: %s", in.Op)
	}

	if o.err != nil && storage.IsErrAuth(o.err) {
		o.terminal = o.err
	}
	return o
}

// applyDeleteBatch issues one batched delete call and folds its mixed
// per-key outcome. A non-nil return is a terminal condition for the run.
func (e *Executor) applyDeleteBatch(batch []plan.Intent, outcomes chan<- outcome) error {
	keys := make([]string, len(batch))
	for i, in := range batch {
		keys[i] = in.SrcKey
		Log.Infof("%s", in.Describe())
	}

	resp, err := e.src.DeleteObjects(keys)
	if err != nil {
		// The whole call failed; every key in the batch counts as failed.
		for _, key := range keys {
			outcomes <- outcome{key: key, n: 1, err: err}
		}
		if storage.IsErrAuth(err) {
			return err
		}
		return nil
	}

	if n := len(resp.Deleted); n > 0 {
		outcomes <- outcome{n: uint64(n)}
	}
	for _, ke := range resp.Errors {
		outcomes <- outcome{key: ke.Key, n: 1, err: fmt.Errorf("%s: %s", ke.Code, ke.Message)}
	}
	return nil
}
