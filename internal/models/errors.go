package models

import (
	"errors"
	"fmt"
)

var (
	ErrFetchFailed         = errors.New("fetch failed")
	ErrCorruptSlot         = errors.New("stored value failed validation")
	ErrVerifierUnavailable = errors.New("verifier unavailable")
	ErrComparison          = errors.New("comparison failed")
	ErrCheckInFlight       = errors.New("check already in flight for target")
)

// FetchError describes why a target could not be observed
type FetchError struct {
	Target string
	Stage  string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Target, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

func NewFetchError(target, stage string, err error) *FetchError {
	return &FetchError{Target: target, Stage: stage, Err: err}
}
