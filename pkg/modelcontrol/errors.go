package modelcontrol

import "github.com/pkg/errors"

var (
	ErrConfigNotSet    = errors.New("model config is not set")
	ErrNilConfig       = errors.New("model config must be set")
	ErrVersionMismatch = errors.New("model version mismatch")
	ErrInvalidConfig   = errors.New("invalid model config")
	ErrInvalidStage    = errors.New("invalid model stage")
	ErrModelNotFound   = errors.New("model not found")
	ErrModelExists     = errors.New("model already exists")
	ErrVersionNotFound = errors.New("model version not found")
	ErrVersionExists   = errors.New("model version already exists")
)
