package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrInvalidRequest = errors.New("invalid scoring request")
)
