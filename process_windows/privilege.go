//go:build windows

package process_windows

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/windows"
)

var debugPrivilege struct {
	sync.Mutex
	enabled bool
}

// EnableDebugPrivilege enables SeDebugPrivilege on the current process token.
func EnableDebugPrivilege() error {
	debugPrivilege.Lock()
	defer debugPrivilege.Unlock()

	if debugPrivilege.enabled {
		return nil
	}

	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("OpenProcessToken: %w", err)
	}
	defer token.Close()

	name, err := windows.UTF16PtrFromString("SeDebugPrivilege")
	if err != nil {
		return err
	}

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, name, &luid); err != nil {
		return fmt.Errorf("LookupPrivilegeValue: %w", err)
	}

	tp := windows.Tokenprivileges{PrivilegeCount: 1}
	tp.Privileges[0] = windows.LUIDAndAttributes{
		Luid:       luid,
		Attributes: windows.SE_PRIVILEGE_ENABLED,
	}
	// the last error is per thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil); err != nil {
		return fmt.Errorf("AdjustTokenPrivileges: %w", err)
	}
	if err := checkAssigned(windows.GetLastError()); err != nil {
		return err
	}

	debugPrivilege.enabled = true
	return nil
}
