//go:build windows

package process_windows

import (
	"errors"
	"fmt"

	"rekit/process"

	"golang.org/x/sys/windows"
)

// Terminate ends pid. When access is denied it enables SeDebugPrivilege and
// tries once more.
func Terminate(pid process.ProcessID) error {
	if err := checkTerminable(pid); err != nil {
		return err
	}

	err := terminate(pid)
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		if perr := EnableDebugPrivilege(); perr == nil {
			err = terminate(pid)
		}
	}
	return err
}

func terminate(pid process.ProcessID) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("TerminateProcess %d failed: %w", pid, err)
	}
	return nil
}
