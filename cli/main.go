// Package provides the cli util s3batch.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gosuri/uilive"
	"github.com/sirupsen/logrus"

	"github.com/s3batch/s3batch/executor"
	"github.com/s3batch/s3batch/gate"
	"github.com/s3batch/s3batch/pipeline"
	"github.com/s3batch/s3batch/storage"
)

var cli argsParsed
var log = logrus.New()
var live *uilive.Writer

const (
	goThreadsPerCPU = 8
)

type runStatus int

const (
	runStatusOk runStatus = iota
	runStatusFailed
	runStatusAborted
	runStatusConfError
	runStatusCancelled
)

// init program runtime
func init() {
	runtime.GOMAXPROCS(runtime.NumCPU() * goThreadsPerCPU)
	pipeline.Log = log
	storage.Log = log
	executor.Log = log
}

func main() {
	var err error
	cli, err = GetCliArgs()
	if err != nil {
		log.Fatalf("cli args parsing failed with error: %s", err)
	}
	if cli.ShowProgress {
		live = uilive.New()
		live.Start()
		log.SetOutput(live.Bypass())
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	}
	if cli.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sysStopChan := make(chan os.Signal, 1)
	signal.Notify(sysStopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	aborted := make(chan struct{})
	go func() {
		recSignal := <-sysStopChan
		log.Warnf("Receive signal: %s, terminating", recSignal.String())
		close(aborted)
		cancel()
	}()

	res := &executor.Result{}
	err = dispatch(ctx, res)

	status := classify(err, aborted)
	printSummary(res, status)
	log.Exit(int(status))
}

// classify maps the run error to the process exit status. Cancellation at
// the gate is distinct from every other class.
func classify(err error, aborted chan struct{}) runStatus {
	var confErr *pipeline.StepConfigurationError

	switch {
	case err == nil:
		return runStatusOk
	case errors.Is(err, gate.ErrDryRun):
		log.Info("Dry run done, no changes made")
		return runStatusOk
	case errors.Is(err, gate.ErrCancelled):
		log.Warn("Cancelled, no changes made")
		return runStatusCancelled
	case storage.IsContextCanceled(err):
		// Covers both a plain context.Canceled and the awserr shape an
		// in-flight store call returns when the run is torn down.
		return runStatusAborted
	case errors.As(err, &confErr):
		log.Errorf("Pipeline configuration error: %s", err)
		return runStatusConfError
	default:
		select {
		case <-aborted:
			return runStatusAborted
		default:
			log.Errorf("Run error: %s", err)
			return runStatusFailed
		}
	}
}

// dispatch wires storages for the chosen subcommand and runs it.
func dispatch(ctx context.Context, res *executor.Result) error {
	g := gate.New(os.Stdin, os.Stdout)
	g.DryRun = cli.DryRun
	g.ShowAll = cli.ShowAll

	switch {
	case cli.Upload != nil:
		return dispatchUpload(ctx, res, g)
	case cli.Delete != nil:
		return dispatchDelete(ctx, res, g)
	case cli.Move != nil:
		return dispatchMove(ctx, res, g)
	case cli.Organize != nil:
		return dispatchOrganize(ctx, res, g)
	case cli.Migrate != nil:
		return dispatchMigrate(ctx, res, g)
	}
	return errors.New("no subcommand selected")
}
