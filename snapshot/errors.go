package snapshot

import "errors"

var (
	// ErrInfoLengthMismatch is returned by a Querier whose buffer was too small.
	ErrInfoLengthMismatch = errors.New("info length mismatch")

	ErrBufferTooLarge = errors.New("system information exceeds buffer limit")
	ErrDecode         = errors.New("malformed system process information")
	ErrInvalidPID     = errors.New("invalid pid filter")
)
