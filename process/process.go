// Package process provides the shared vocabulary for inspecting a live process
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrUnsupported is returned by platform backed operations on platforms that lack them.
	ErrUnsupported = errors.New("operation not supported on this platform")

	ErrInvalidPattern = errors.New("invalid hex pattern")
)
