package main

import (
	"context"
	"fmt"
	"os"

	"github.com/s3batch/s3batch/executor"
	"github.com/s3batch/s3batch/gate"
	"github.com/s3batch/s3batch/match"
	"github.com/s3batch/s3batch/pipeline"
	"github.com/s3batch/s3batch/pipeline/collection"
	"github.com/s3batch/s3batch/storage"
	"github.com/s3batch/s3batch/storage/fs"
	s3st "github.com/s3batch/s3batch/storage/s3"
)

func newS3(cfg *argsParsed, bucket, prefix string) *s3st.S3Storage {
	return s3st.NewS3Storage(cfg.AccessKey, cfg.SecretKey, cfg.Region, cfg.Endpoint,
		bucket, prefix, cfg.S3KeysPerReq, cfg.S3Retry, cfg.S3RetryInterval,
	)
}

// newListerAndMutator builds the two storage handles a command needs: a
// lister scoped to prefix with the run context applied, and an unscoped
// mutator. The mutator deliberately gets no context: in-flight data
// modification calls should run to completion even when the run is
// cancelled.
func newListerAndMutator(ctx context.Context, cfg *argsParsed, bucket, prefix string) (lister, mutator *s3st.S3Storage) {
	lister = newS3(cfg, bucket, prefix)
	lister.WithContext(ctx)
	mutator = newS3(cfg, bucket, "")
	return
}

// scanObjects runs the scan pipeline over source and materializes the
// result: list, restore the listing prefix so downstream sees absolute
// keys, filter by criteria, collect. The first scan error aborts the scan
// and is returned; a plan is only ever built from a complete listing.
func scanObjects(ctx context.Context, source storage.Storage, keyPrefix string, criteria match.Criteria, cfg *argsParsed) ([]*storage.Object, error) {
	sctx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()

	group := pipeline.NewGroup()
	group.WithContext(sctx)
	group.SetSource(source)

	group.AddPipeStep(pipeline.Step{
		Name:     "ListSource",
		Fn:       collection.ListSourceStorage,
		ChanSize: cfg.ListBuffer,
	})
	if keyPrefix != "" {
		group.AddPipeStep(pipeline.Step{
			Name:   "RestoreKeyPrefix",
			Fn:     collection.RestoreKeyPrefix,
			Config: keyPrefix,
		})
	}
	if !criteria.Empty() {
		group.AddPipeStep(pipeline.Step{
			Name:   "FilterByCriteria",
			Fn:     collection.FilterObjectsByCriteria,
			Config: criteria,
		})
	}
	if cfg.RateLimitObjPerSec > 0 {
		group.AddPipeStep(pipeline.Step{
			Name:   "RateLimit",
			Fn:     collection.PipelineRateLimit,
			Config: cfg.RateLimitObjPerSec,
		})
	}
	if cfg.Debug {
		group.AddPipeStep(pipeline.Step{
			Name:   "Logger",
			Fn:     collection.Logger,
			Config: log,
		})
	}
	collector := &collection.Collector{}
	group.AddPipeStep(pipeline.Step{
		Name:   "Collect",
		Fn:     collection.CollectObjects,
		Config: collector,
	})

	group.Run()
	if cfg.ShowProgress {
		go scanLiveStats(sctx, &group)
	}

	for err := range group.ErrChan() {
		if err == nil {
			continue
		}
		// First error wins. Cancel the scan and keep a drainer on the
		// error channel so no step blocks while the run is torn down.
		cancelScan()
		go func() {
			for range group.ErrChan() {
			}
		}()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collector.Objects(), nil
}

func dispatchUpload(ctx context.Context, res *executor.Result, g *gate.Gate) error {
	local := fs.NewFSStorage(cli.Upload.Dir, os.Getpagesize()*256*32)
	local.WithContext(ctx)
	if cli.RateLimitBandwidth > 0 {
		if err := local.WithRateLimit(cli.RateLimitBandwidth); err != nil {
			return fmt.Errorf("bandwidth limit error: %w", err)
		}
	}
	remoteLister, remote := newListerAndMutator(ctx, &cli, cli.Bucket, "")
	exec := executor.NewTransfer(local, remote, remote.CopyObject)
	return runUpload(ctx, &cli, local, local.RootName(), remoteLister, exec, g, res)
}

func dispatchDelete(ctx context.Context, res *executor.Result, g *gate.Gate) error {
	prefix := ""
	if cli.Delete.Folder != "" {
		prefix = match.NormalizePrefix(cli.Delete.Folder)
	}
	lister, mutator := newListerAndMutator(ctx, &cli, cli.Bucket, prefix)
	if cli.Delete.DeleteBucket {
		return runDeleteBucket(&cli, mutator, g)
	}
	return runDelete(ctx, &cli, lister, prefix, executor.New(mutator), g, res)
}

func dispatchMove(ctx context.Context, res *executor.Result, g *gate.Gate) error {
	listerFor := func(prefix string) storage.Storage {
		lister := newS3(&cli, cli.Bucket, prefix)
		lister.WithContext(ctx)
		return lister
	}
	mutator := newS3(&cli, cli.Bucket, "")
	return runMove(ctx, &cli, listerFor, executor.New(mutator), g, res)
}

func dispatchOrganize(ctx context.Context, res *executor.Result, g *gate.Gate) error {
	prefix := match.NormalizePrefix(cli.Organize.Base)
	lister, mutator := newListerAndMutator(ctx, &cli, cli.Bucket, prefix)
	return runOrganize(ctx, &cli, lister, prefix, executor.New(mutator), g, res)
}

func dispatchMigrate(ctx context.Context, res *executor.Result, g *gate.Gate) error {
	prefix := ""
	if cli.Migrate.Prefix != "" {
		prefix = match.NormalizePrefix(cli.Migrate.Prefix)
	}
	lister, src := newListerAndMutator(ctx, &cli, cli.Bucket, prefix)
	dst := newS3(&cli, cli.Migrate.TargetBucket, "")
	copyFn := func(srcKey, dstKey string) error {
		return src.CopyObjectTo(srcKey, dst, dstKey)
	}
	exec := executor.NewTransfer(src, dst, copyFn)
	return runMigrate(ctx, &cli, lister, prefix, exec, g, res)
}
