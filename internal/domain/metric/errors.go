package metric

import "errors"

// Sentinel kinds for metric errors. Callers match them with errors.Is.
var (
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrLengthMismatch  = errors.New("ground truth and predictions differ in length")
	ErrEmptyInput      = errors.New("empty input")
	ErrNotNumeric      = errors.New("value is not numeric")
	ErrInvalidParam    = errors.New("invalid metric parameter")
	ErrUndefinedMetric = errors.New("metric is undefined for this input")
)
