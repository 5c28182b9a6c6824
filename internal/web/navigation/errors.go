package navigation

import (
	"errors"
)

var (
	// ErrInvalidConfiguration is returned when a navigation entry is built
	// with an empty or relative path, or without a label.
	ErrInvalidConfiguration = errors.New("invalid navigation configuration")
)
