package evaluate

import "errors"

// Sentinel errors for evaluation runs.
var (
	ErrNoTargets = errors.New("evaluation has no targets")
)
