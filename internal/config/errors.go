package config

import "errors"

var (
	// ErrInvalidConfig marks a configuration that loaded but failed Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a YAML file or DVAL_ environment layer that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
