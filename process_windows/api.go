// Package process_windows binds the process, snapshot and inject contracts
// to the Windows kernel. On other platforms every entry point reports
// process.ErrUnsupported.
package process_windows

import (
	"errors"
	"fmt"
	"syscall"

	"rekit/process"
)

// ErrPrivilegeNotHeld is returned when the token has no SeDebugPrivilege to enable.
var ErrPrivilegeNotHeld = errors.New("SeDebugPrivilege is not held by the process token")

// errNotAllAssigned is ERROR_NOT_ALL_ASSIGNED, which AdjustTokenPrivileges
// leaves in the last error while still reporting success.
const errNotAllAssigned = syscall.Errno(1300)

// checkAssigned maps the last error left by AdjustTokenPrivileges.
func checkAssigned(lastErr error) error {
	if errors.Is(lastErr, errNotAllAssigned) {
		return ErrPrivilegeNotHeld
	}
	return nil
}

// ErrProtectedProcess is returned when asked to terminate the idle or system process.
var ErrProtectedProcess = errors.New("refusing to terminate a system process")

func checkTerminable(pid process.ProcessID) error {
	if pid == 0 || pid == 4 {
		return fmt.Errorf("%w: pid %d", ErrProtectedProcess, pid)
	}
	return nil
}
