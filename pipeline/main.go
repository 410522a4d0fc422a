// Package pipeline provides the channel pipeline that drives the scan
// phase: a Group of Steps, each fanning out to one or more workers, with
// per-step statistics and an error channel drained by the caller.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/s3batch/s3batch/storage"
)

// Log implement Logrus logger for debug logging.
var Log = logrus.New()

func init() {
	storage.Log = Log
}

// Group is a set of pipeline steps with a shared source storage and
// context. Steps run concurrently; data flows strictly from each step to
// the next.
type Group struct {
	Source    storage.Storage
	Ctx       context.Context
	StartTime time.Time
	steps     []*Step
	errChan   chan error
	errWg     *sync.WaitGroup
}

// NewGroup return new pipeline group.
func NewGroup() Group {
	return Group{
		errChan: make(chan error),
		errWg:   &sync.WaitGroup{},
		Ctx:     context.Background(),
		steps:   make([]*Step, 0),
	}
}

// WithContext add's context to group.
func (group *Group) WithContext(ctx context.Context) {
	group.Ctx = ctx
}

// SetSource set group source storage.
func (group *Group) SetSource(st storage.Storage) {
	group.Source = st
}

// AddPipeStep add pipeline step to group.
// Steps are executed in the order they were added.
func (group *Group) AddPipeStep(step Step) {
	step.errChan = make(chan error)
	step.workerWg = &sync.WaitGroup{}
	step.intInChan = make(chan *storage.Object, step.ChanSize)
	step.intOutChan = make(chan *storage.Object, step.ChanSize)
	step.outChan = make(chan *storage.Object, step.ChanSize)
	group.steps = append(group.steps, &step)
}

// GetStepInfo return info about step with given number.
func (group *Group) GetStepInfo(stepNum int) StepInfo {
	step := group.steps[stepNum]
	return StepInfo{
		Stats:  step.loadStats(),
		Name:   step.Name,
		Num:    stepNum,
		Config: step.Config,
	}
}

// GetStepsInfo return info about all pipeline steps.
func (group *Group) GetStepsInfo() []StepInfo {
	res := make([]StepInfo, len(group.steps))
	for i := range group.steps {
		res[i] = group.GetStepInfo(i)
	}
	return res
}

// Run start the pipeline. Results and state are communicated over the
// group's error channel: step errors are wrapped in PipelineError, a final
// nil signals that every step finished.
func (group *Group) Run() {
	group.StartTime = time.Now()
	for i := 0; i < len(group.steps); i++ {
		step := group.steps[i]

		group.errWg.Add(1)
		go func(step *Step, stepNum int) {
			for e := range step.errChan {
				atomic.AddUint64(&step.stats.Error, 1)
				Log.Debugf("Recv pipeline err: %s", e)
				group.errChan <- &PipelineError{StepName: step.Name, StepNum: stepNum, Err: e}
			}
			group.errWg.Done()
		}(step, i)

		if i == 0 {
			close(step.intInChan)
		} else {
			go func(step *Step, prev *Step) {
				for obj := range prev.outChan {
					atomic.AddUint64(&step.stats.Input, 1)
					step.intInChan <- obj
				}
				close(step.intInChan)
			}(step, group.steps[i-1])
		}

		go func(step *Step) {
			for obj := range step.intOutChan {
				atomic.AddUint64(&step.stats.Output, 1)
				step.outChan <- obj
			}
			close(step.outChan)
		}(step)

		go func(step *Step, stepNum int) {
			for w := uint(0); w <= step.AddWorkers; w++ {
				step.workerWg.Add(1)
				go func() {
					defer step.workerWg.Done()
					step.Fn(group, stepNum, step.intInChan, step.intOutChan, step.errChan)
				}()
			}

			step.workerWg.Wait()
			Log.Debugf("Pipeline step: %s finished", step.Name)
			close(step.intOutChan)
			close(step.errChan)
			if stepNum+1 == len(group.steps) {
				Log.Debugf("All pipeline steps finished")
				group.errWg.Wait()
				group.errChan <- nil
				close(group.errChan)
			}
		}(step, i)
	}
}

// ErrChan returns the group error channel.
func (group *Group) ErrChan() chan error {
	return group.errChan
}
