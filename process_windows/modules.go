//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"rekit/process"

	"golang.org/x/sys/windows"
)

// ListModules lists the images loaded in pid, in load order.
func ListModules(pid process.ProcessID) ([]process.ModuleRecord, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot %d failed: %w", pid, err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var modules []process.ModuleRecord
	err = windows.Module32First(snap, &entry)
	for err == nil {
		modules = append(modules, process.ModuleRecord{
			Name: windows.UTF16ToString(entry.Module[:]),
			Path: windows.UTF16ToString(entry.ExePath[:]),
			Base: process.ProcessMemoryAddress(entry.ModBaseAddr),
			Size: process.ProcessMemorySize(entry.ModBaseSize),
		})
		err = windows.Module32Next(snap, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return modules, fmt.Errorf("Module32Next failed: %w", err)
	}

	return modules, nil
}
