package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownStatus = errors.New("unknown evaluation status")
)
