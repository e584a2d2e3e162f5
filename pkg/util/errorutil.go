package util

import (
	"errors"
	"fmt"
)

// Pipeline stages attached to StageError for post-hoc diagnosis.
const (
	StageConnect = "connect"
	StageSearch  = "search"
	StageFetch   = "fetch"
	StageParse   = "parse"
	StagePersist = "persist"
	StageNotify  = "notify"
	StageAlert   = "alert"
	StageSweep   = "sweep"
)

// StageError carries enough context (pipeline stage, mailbox message
// identifier) to diagnose a failed loop iteration from logs alone. It is the
// structured replacement for swallowing errors at loop boundaries.
type StageError struct {
	Stage     string
	MessageID string
	Err       error
}

func (e *StageError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("%s: message %s: %v", e.Stage, e.MessageID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with pipeline context. MessageID may be empty for
// failures that precede fetching a concrete message.
func NewStageError(stage, messageID string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, MessageID: messageID, Err: err}
}

// StageOf extracts the stage from a wrapped StageError, or "" when absent.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
