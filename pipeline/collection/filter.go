package collection

import (
	"github.com/s3batch/s3batch/match"
	"github.com/s3batch/s3batch/pipeline"
	"github.com/s3batch/s3batch/storage"
)

// RestoreKeyPrefix re-adds the listing prefix, so downstream steps see
// absolute keys even when the source storage listed relative to a prefix.
//
// This filter read configuration from Step.Config and assert it type to string type.
var RestoreKeyPrefix pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	info := group.GetStepInfo(stepNum)
	cfg, ok := info.Config.(string)
	if !ok {
		errChan <- &pipeline.StepConfigurationError{StepName: info.Name, StepNum: stepNum}
		return
	}
	for obj := range input {
		select {
		case <-group.Ctx.Done():
			return
		default:
			key := cfg + *obj.Key
			obj.Key = &key
			output <- obj
		}
	}
}

// FilterObjectsByCriteria forwards only objects selected by the configured
// match.Criteria and records the match reason on the object.
//
// This filter read configuration from Step.Config and assert it type to match.Criteria type.
var FilterObjectsByCriteria pipeline.StepFn = func(group *pipeline.Group, stepNum int, input <-chan *storage.Object, output chan<- *storage.Object, errChan chan<- error) {
	info := group.GetStepInfo(stepNum)
	cfg, ok := info.Config.(match.Criteria)
	if !ok {
		errChan <- &pipeline.StepConfigurationError{StepName: info.Name, StepNum: stepNum}
		return
	}
	for obj := range input {
		select {
		case <-group.Ctx.Done():
			return
		default:
			if matched, reason := match.Match(*obj.Key, cfg); matched {
				obj.MatchReason = &reason
				output <- obj
			}
		}
	}
}
