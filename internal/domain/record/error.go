package record

import (
	"errors"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidData = errors.New("invalid record data")
	ErrMissingKey  = errors.New("record has no identifier")
)
