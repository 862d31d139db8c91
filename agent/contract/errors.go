package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrUnknownProvider = errors.New("unknown llm provider")

	// ErrMissingInput means the session lacks a field a data tool requires.
	ErrMissingInput = errors.New("required input is missing")
)
