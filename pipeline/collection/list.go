// Package collection contains different StepFn functions to do different pipeline actions.
package collection

import (
	"github.com/s3batch/s3batch/pipeline"
	"github.com/s3batch/s3batch/storage"
)

// ListSourceStorage lists the group's source storage into the pipeline.
// It is always the first step.
var ListSourceStorage pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	select {
	case <-group.Ctx.Done():
		return
	default:
		err := group.Source.List(output)
		if err != nil {
			errChan <- err
		}
	}
}
