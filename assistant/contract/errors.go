package contract

import "errors"

var (
	ErrModelInvoke   = errors.New("model invoke failed")
	ErrDepthExceeded = errors.New("tool-call depth exceeded")
	ErrValidation    = errors.New("validation failed")
)
