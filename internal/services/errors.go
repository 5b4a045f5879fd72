package services

import (
	"errors"
	"fmt"

	"github.com/snappy-loop/fairytales/internal/models"
)

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTaleNotFound is returned for unknown tale IDs.
	ErrTaleNotFound = models.ErrTaleNotFound
	// ErrPersistenceDisabled is returned by lookups when no database is configured.
	ErrPersistenceDisabled = errors.New("tale history is not enabled")
	// ErrNoAudio is returned when a tale has no archived audio.
	ErrNoAudio = errors.New("tale has no archived audio")
)

// SynthesisError reports a failed narration, including an unusable voice reference.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
