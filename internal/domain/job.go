package domain

import (
	"fmt"
	"strings"
)

// MaxInstances bounds the number of instances a single host may be asked to run.
const MaxInstances = 100

type JobSpec struct {
	Instances  int
	Executable string
}

func (j JobSpec) Validate() error {
	if j.Instances < 1 || j.Instances > MaxInstances {
		return fmt.Errorf("%w: instances %d out of range [1, %d]", ErrConfig, j.Instances, MaxInstances)
	}
	if strings.TrimSpace(j.Executable) == "" {
		return fmt.Errorf("%w: executable path is required", ErrConfig)
	}

	return nil
}
