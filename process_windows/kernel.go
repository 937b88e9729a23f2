//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"rekit/inject"
	"rekit/process"
	"rekit/snapshot"

	"golang.org/x/sys/windows"
)

// Kernel provides the services injection needs from the running system
type Kernel struct {
	SystemInformation
}

var _ inject.Kernel = (*Kernel)(nil)

func NewKernel() *Kernel {
	return &Kernel{}
}

func (k *Kernel) EnableDebugPrivilege() error {
	return EnableDebugPrivilege()
}

func (k *Kernel) OpenProcess(pid process.ProcessID, access inject.Access) (inject.RemoteProcess, error) {
	p, err := Open(pid, uint32(access))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (k *Kernel) OpenThread(tid process.ThreadID) (inject.RemoteThread, error) {
	t, err := OpenThread(tid, windows.THREAD_SET_CONTEXT|windows.THREAD_QUERY_INFORMATION)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// LoaderAddress resolves LoadLibraryW in this process. The image base of
// kernel32 is shared by every process in the session.
func (k *Kernel) LoaderAddress() (process.ProcessMemoryAddress, error) {
	if err := procLoadLibraryW.Find(); err != nil {
		return 0, fmt.Errorf("resolve LoadLibraryW: %w", err)
	}
	return process.ProcessMemoryAddress(procLoadLibraryW.Addr()), nil
}

// SystemInformation queries the kernel process table
type SystemInformation struct{}

var _ snapshot.Querier = SystemInformation{}

func NewSystemInformation() SystemInformation {
	return SystemInformation{}
}

func (SystemInformation) QuerySystemInformation(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, snapshot.ErrInfoLengthMismatch
	}

	var returned uint32
	err := windows.NtQuerySystemInformation(windows.SystemProcessInformation, unsafe.Pointer(&buf[0]), uint32(len(buf)), &returned)
	if err == windows.STATUS_INFO_LENGTH_MISMATCH {
		return 0, snapshot.ErrInfoLengthMismatch
	}
	if err != nil {
		return 0, fmt.Errorf("NtQuerySystemInformation failed: %w", err)
	}
	return int(returned), nil
}
