package collection

import (
	"github.com/larrabee/ratelimit"
	"github.com/sirupsen/logrus"

	"github.com/s3batch/s3batch/pipeline"
	"github.com/s3batch/s3batch/storage"
)

// Collector materializes everything that reaches it. It is a terminal
// step: the scan phase ends here, the finite result feeds the plan builder.
// Must run with a single worker.
type Collector struct {
	objects []*storage.Object
}

// Objects returns the collected objects in enumeration order.
func (c *Collector) Objects() []*storage.Object {
	return c.objects
}

// Keys returns the collected absolute keys in enumeration order.
func (c *Collector) Keys() []string {
	keys := make([]string, len(c.objects))
	for i, obj := range c.objects {
		keys[i] = *obj.Key
	}
	return keys
}

// CollectObjects accumulates input objects into the configured *Collector.
//
// This filter read configuration from Step.Config and assert it type to *Collector type.
var CollectObjects pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	info := group.GetStepInfo(stepNum)
	cfg, ok := info.Config.(*Collector)
	if !ok {
		errChan <- &pipeline.StepConfigurationError{StepName: info.Name, StepNum: stepNum}
		return
	}
	for obj := range input {
		select {
		case <-group.Ctx.Done():
			return
		default:
			cfg.objects = append(cfg.objects, obj)
		}
	}
}

// Logger read objects from input, print object name with Log and send object no next pipeline steps.
var Logger pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	info := group.GetStepInfo(stepNum)
	cfg, ok := info.Config.(*logrus.Logger)
	if !ok {
		errChan <- &pipeline.StepConfigurationError{StepName: info.Name, StepNum: stepNum}
		return
	}
	for obj := range input {
		select {
		case <-group.Ctx.Done():
			return
		default:
			cfg.Infof("Key: %s", *obj.Key)
			output <- obj
		}
	}
}

// PipelineRateLimit read objects from input and slow down pipeline processing speed to given rate (obj/sec).
//
// This filter read configuration from Step.Config and assert it type to uint type.
var PipelineRateLimit pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	info := group.GetStepInfo(stepNum)
	cfg, ok := info.Config.(uint)
	if !ok {
		errChan <- &pipeline.StepConfigurationError{StepName: info.Name, StepNum: stepNum}
		return
	}
	bucket, err := ratelimit.NewBucketWithRate(float64(cfg), int64(cfg*2))
	if err != nil {
		errChan <- err
		return
	}
	for obj := range input {
		select {
		case <-group.Ctx.Done():
			return
		default:
			bucket.Wait(1)
			output <- obj
		}
	}
}
