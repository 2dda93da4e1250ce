package cmd

import (
	"errors"

	"github.com/bnema/job-launcher/internal/domain"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitSetup   = 2
)

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrCancelled):
		return ExitFailure
	case errors.Is(err, domain.ErrConfig),
		errors.Is(err, domain.ErrLoad),
		errors.Is(err, domain.ErrNoReachableHosts),
		errors.Is(err, errSetup):
		return ExitSetup
	default:
		return ExitFailure
	}
}
