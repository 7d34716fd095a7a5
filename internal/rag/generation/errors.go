package generation

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrUnrecoverableOutput = errors.New("model output holds no usable JSON")
	ErrMissingRequiredKey  = errors.New("required key missing from model output")
)

type Stage string

const (
	StageProvider Stage = "provider"
	StageClean    Stage = "clean"
	StageValidate Stage = "validate"
)

// Error is returned for strict tasks only. Conversational tasks fall back instead.
type Error struct {
	Task  string
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation %s failed at %s: %v", e.Task, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
