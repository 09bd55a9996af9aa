package status

import "errors"

var (
	ErrValidation        = errors.New("party: validation failed")
	ErrNotFound          = errors.New("party: not found")
	ErrDuplicateIdentity = errors.New("party: duplicate identity")
)
