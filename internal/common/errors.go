package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Codec errors.
	ErrUnknownPurpose = errors.New("unknown token purpose")
)
