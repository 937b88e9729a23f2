package inject

import "errors"

var (
	ErrNoThreads       = errors.New("target has no threads")
	ErrNoAPCQueued     = errors.New("no thread accepted the APC")
	ErrNotDLL          = errors.New("module is not a DLL")
	ErrMachineMismatch = errors.New("module machine type does not match this build")
)
