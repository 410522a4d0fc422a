package main

import (
	"context"
	"fmt"
	"time"

	"github.com/s3batch/s3batch/executor"
	"github.com/s3batch/s3batch/pipeline"
)

func scanLiveStats(ctx context.Context, group *pipeline.Group) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			dur := time.Since(group.StartTime).Seconds()
			for _, val := range group.GetStepsInfo() {
				_, _ = fmt.Fprintf(live, "%d %s: Input: %d; Output: %d (%.f obj/sec); Errors: %d\n", val.Num, val.Name, val.Stats.Input, val.Stats.Output, float64(val.Stats.Output)/dur, val.Stats.Error)
			}
			_, _ = fmt.Fprintf(live, "Duration: %s\n", time.Since(group.StartTime).String())
			time.Sleep(time.Second)
		}
	}
}

func execLiveStats(ctx context.Context, res *executor.Result, total uint64) {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			done := res.Succeeded() + res.Failed()
			dur := time.Since(start).Seconds()
			_, _ = fmt.Fprintf(live, "Applied: %d/%d (%.f obj/sec); Failed: %d\n", done, total, float64(done)/dur, res.Failed())
			_, _ = fmt.Fprintf(live, "Duration: %s\n", time.Since(start).String())
			time.Sleep(time.Second)
		}
	}
}

// printSummary reports the run accounting. Failures and partial moves are
// always listed, whatever the run status is.
func printSummary(res *executor.Result, status runStatus) {
	log.Infof("Succeeded: %d; Failed: %d; Skipped: %d", res.Succeeded(), res.Failed(), res.Skipped())

	for _, f := range res.Failures {
		log.Errorf("Failed: %s, error: %s", f.Key, f.Err)
	}
	for _, f := range res.PartialMoves {
		log.Warnf("Partial move: %s copied but not removed from source, error: %s", f.Key, f.Err)
	}

	switch status {
	case runStatusOk:
		log.Infof("Done")
	case runStatusFailed:
		log.Error("Run Failed")
	case runStatusAborted:
		log.Warnf("Run Aborted")
	case runStatusConfError:
		log.Errorf("Run Configuration error")
	case runStatusCancelled:
		log.Warnf("Run Cancelled")
	default:
		log.Warnf("Run Unknown status")
	}
}
