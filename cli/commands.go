package main

import (
	"context"
	"fmt"

	"github.com/s3batch/s3batch/executor"
	"github.com/s3batch/s3batch/gate"
	"github.com/s3batch/s3batch/match"
	"github.com/s3batch/s3batch/plan"
	"github.com/s3batch/s3batch/storage"
)

// execute runs the reviewed plan with the configured worker pool.
func execute(ctx context.Context, cfg *argsParsed, exec *executor.Executor, p plan.Plan, res *executor.Result) error {
	opts := executor.Options{
		Workers:            cfg.Workers,
		RateLimitObjPerSec: cfg.RateLimitObjPerSec,
	}
	log.Infof("Applying %d operations", len(p))
	if cfg.ShowProgress {
		ectx, done := context.WithCancel(ctx)
		defer done()
		go execLiveStats(ectx, res, uint64(len(p)))
	}
	return exec.Execute(ctx, p, opts, res)
}

func objectKeys(objs []*storage.Object) []string {
	keys := make([]string, len(objs))
	for i, obj := range objs {
		keys[i] = *obj.Key
	}
	return keys
}

func runUpload(ctx context.Context, cfg *argsParsed, local storage.Storage, rootName string, remote storage.Storage, exec *executor.Executor, g *gate.Gate, res *executor.Result) error {
	localObjs, err := scanObjects(ctx, local, "", match.Criteria{}, cfg)
	if err != nil {
		return fmt.Errorf("local scan failed: %w", err)
	}
	remoteObjs, err := scanObjects(ctx, remote, "", match.Criteria{}, cfg)
	if err != nil {
		return fmt.Errorf("bucket scan failed: %w", err)
	}

	keyFn := plan.FullKey
	if cfg.Upload.DedupBasename {
		keyFn = plan.BaseKey
	}
	split := plan.Dedup(objectKeys(localObjs), rootName, cfg.Upload.Prefix, objectKeys(remoteObjs), keyFn)
	res.AddSkipped(uint64(len(split.ToSkip)))
	log.Infof("%d local files, %d already present, %d to upload",
		len(localObjs), len(split.ToSkip), len(split.ToUpload),
	)

	p := plan.BuildUpload(split.ToUpload, rootName, cfg.Upload.Prefix)
	if len(p) == 0 {
		log.Info("Nothing to upload")
		return nil
	}
	if err := g.Review(p, gate.ModeYes, ""); err != nil {
		return err
	}
	return execute(ctx, cfg, exec, p, res)
}

func runDelete(ctx context.Context, cfg *argsParsed, lister storage.Storage, keyPrefix string, exec *executor.Executor, g *gate.Gate, res *executor.Result) error {
	criteria := match.Criteria{
		FolderPrefix:    cfg.Delete.Folder,
		Extensions:      cfg.Delete.Extensions,
		Patterns:        cfg.Delete.Patterns,
		ExcludePrefixes: cfg.Delete.Exclude,
	}
	objs, err := scanObjects(ctx, lister, keyPrefix, criteria, cfg)
	if err != nil {
		return fmt.Errorf("bucket scan failed: %w", err)
	}
	if len(objs) == 0 {
		log.Info("No matching objects found")
		return nil
	}

	targets := make([]plan.Target, len(objs))
	for i, obj := range objs {
		targets[i] = plan.Target{Key: *obj.Key}
		if obj.MatchReason != nil {
			targets[i].Reason = *obj.MatchReason
		}
	}
	p := plan.BuildDelete(targets)
	if err := g.Review(p, gate.ModeStrict, "DELETE"); err != nil {
		return err
	}
	return execute(ctx, cfg, exec, p, res)
}

func runDeleteBucket(cfg *argsParsed, mutator storage.Storage, g *gate.Gate) error {
	description := fmt.Sprintf("delete bucket %s", cfg.Bucket)
	token := fmt.Sprintf("DELETE %s", cfg.Bucket)
	if err := g.ReviewAction(description, token); err != nil {
		return err
	}
	if err := mutator.DeleteBucket(); err != nil {
		if storage.IsErrBucketNotEmpty(err) {
			log.Error("Bucket is not empty, delete its objects first (delete --folder '')")
		}
		return fmt.Errorf("bucket deletion failed: %w", err)
	}
	log.Infof("Bucket %s deleted", cfg.Bucket)
	return nil
}

func runMove(ctx context.Context, cfg *argsParsed, listerFor func(prefix string) storage.Storage, exec *executor.Executor, g *gate.Gate, res *executor.Result) error {
	full := plan.Plan{}
	for _, pair := range cfg.MovePairs {
		srcPrefix := match.NormalizePrefix(pair.Source)
		objs, err := scanObjects(ctx, listerFor(srcPrefix), srcPrefix, match.Criteria{}, cfg)
		if err != nil {
			return fmt.Errorf("scan of %s failed: %w", srcPrefix, err)
		}
		if len(objs) == 0 {
			log.Warnf("No objects under %s, skipping pair", srcPrefix)
			continue
		}
		p, err := plan.BuildMove(objectKeys(objs), srcPrefix, match.NormalizePrefix(pair.Destination))
		if err != nil {
			return err
		}
		full = append(full, p...)
	}
	if len(full) == 0 {
		log.Info("Nothing to move")
		return nil
	}
	if err := g.Review(full, gate.ModeYes, ""); err != nil {
		return err
	}
	return execute(ctx, cfg, exec, full, res)
}

func runOrganize(ctx context.Context, cfg *argsParsed, lister storage.Storage, keyPrefix string, exec *executor.Executor, g *gate.Gate, res *executor.Result) error {
	objs, err := scanObjects(ctx, lister, keyPrefix, match.Criteria{}, cfg)
	if err != nil {
		return fmt.Errorf("bucket scan failed: %w", err)
	}

	// The legacy prefix is always on the keep-list, so a second run over
	// the result of the first is a no-op.
	keep := append([]string{cfg.Organize.Legacy}, cfg.Organize.Keep...)
	p := plan.BuildOrganize(objectKeys(objs), cfg.Organize.Base, cfg.Organize.Legacy, keep)
	if len(p) == 0 {
		log.Info("Nothing to organize")
		return nil
	}
	if err := g.Review(p, gate.ModeYes, ""); err != nil {
		return err
	}
	return execute(ctx, cfg, exec, p, res)
}

func runMigrate(ctx context.Context, cfg *argsParsed, lister storage.Storage, keyPrefix string, exec *executor.Executor, g *gate.Gate, res *executor.Result) error {
	objs, err := scanObjects(ctx, lister, keyPrefix, match.Criteria{}, cfg)
	if err != nil {
		return fmt.Errorf("bucket scan failed: %w", err)
	}
	if len(objs) == 0 {
		log.Info("Nothing to migrate")
		return nil
	}

	p := plan.BuildMigrate(objectKeys(objs), cfg.Migrate.DeleteSource)
	if err := g.Review(p, gate.ModeStrict, "MIGRATE"); err != nil {
		return err
	}
	return execute(ctx, cfg, exec, p, res)
}
