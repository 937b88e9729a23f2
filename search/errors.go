package search

import "errors"

var (
	ErrLengthZero        = errors.New("length is zero")
	ErrNoReadableRegions = errors.New("no readable regions")
	ErrInvalidValue      = errors.New("invalid value")
	ErrMissingBaseline   = errors.New("relational compare needs previous values")
	ErrOpenFailed        = errors.New("open process failed")
)
