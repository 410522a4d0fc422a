package pipeline

import (
	"fmt"
)

// PipelineError wraps a step failure with the step's identity.
type PipelineError struct {
	StepName string
	StepNum  int
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline step: %d (%s) failed with error: %s", e.StepNum, e.StepName, e.Err.Error())
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StepConfigurationError mean that step reject the configuration it was
// given.
type StepConfigurationError struct {
	StepName string
	StepNum  int
}

func (e *StepConfigurationError) Error() string {
	return fmt.Sprintf("pipeline step: %d (%s) invalid configuration passed", e.StepNum, e.StepName)
}
