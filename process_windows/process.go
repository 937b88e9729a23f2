//go:build windows

package process_windows

import (
	"fmt"
	"sync"
	"unsafe"

	"rekit/inject"
	"rekit/process"
	"rekit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

var (
	modkernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procVirtualAllocEx      = modkernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx       = modkernel32.NewProc("VirtualFreeEx")
	procQueueUserAPC        = modkernel32.NewProc("QueueUserAPC")
	procLoadLibraryW        = modkernel32.NewProc("LoadLibraryW")
	modntdll                = windows.NewLazySystemDLL("ntdll.dll")
	procRtlCreateUserThread = modntdll.NewProc("RtlCreateUserThread")
)

// WindowsProcess is an open handle on a process
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

var (
	_ process.Process      = (*WindowsProcess)(nil)
	_ inject.RemoteProcess = (*WindowsProcess)(nil)
)

// Open opens pid with the given access mask
func Open(pid process.ProcessID, access uint32) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}

	p := &WindowsProcess{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	p.log.Debugln("Process opened, access", fmt.Sprintf("%#x", access))
	return p, nil
}

// OpenForScan opens pid with the rights needed to walk and read its memory.
func OpenForScan(pid process.ProcessID) (process.Process, error) {
	p, err := Open(pid, windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
		p.log.Debugln("Process closed")
	}

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	return p.pid
}

func (p *WindowsProcess) getHandle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, process.ErrProcessNotOpen
	}
	return p.handle, nil
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return 0, err
	}

	var bytesRead uintptr
	err = windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil {
		return int(bytesRead), fmt.Errorf("ReadProcessMemory %s failed: %w", addr.ToString(), err)
	}
	if bytesRead != uintptr(len(buf)) {
		return int(bytesRead), fmt.Errorf("read incomplete: expected %d, got %d", len(buf), bytesRead)
	}

	return int(bytesRead), nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return err
	}

	var written uintptr
	err = windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written)
	if err != nil {
		return fmt.Errorf("WriteProcessMemory %s failed: %w", addr.ToString(), err)
	}
	if written != uintptr(len(data)) {
		return fmt.Errorf("write incomplete: expected %d, got %d", len(data), written)
	}
	return nil
}

func (p *WindowsProcess) QueryRegion(addr uint64) (memory_map.RegionInfo, error) {
	handle, err := p.getHandle()
	if err != nil {
		return memory_map.RegionInfo{}, err
	}

	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQueryEx(handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi)); err != nil {
		return memory_map.RegionInfo{}, fmt.Errorf("%w: VirtualQueryEx %#x: %v", memory_map.ErrQueryFailed, addr, err)
	}

	return memory_map.RegionInfo{
		Base:    uint64(mbi.BaseAddress),
		Size:    uint64(mbi.RegionSize),
		State:   mbi.State,
		Protect: mbi.Protect,
	}, nil
}

// Allocate commits size bytes of read/write memory in the process.
func (p *WindowsProcess) Allocate(size int) (process.ProcessMemoryAddress, error) {
	handle, err := p.getHandle()
	if err != nil {
		return 0, err
	}

	addr, _, callErr := procVirtualAllocEx.Call(
		uintptr(handle),
		0,
		uintptr(size),
		uintptr(windows.MEM_COMMIT|windows.MEM_RESERVE),
		uintptr(windows.PAGE_READWRITE),
	)
	if addr == 0 {
		return 0, fmt.Errorf("VirtualAllocEx failed: %v", callErr)
	}
	return process.ProcessMemoryAddress(addr), nil
}

// Free releases an allocation made by Allocate.
func (p *WindowsProcess) Free(addr process.ProcessMemoryAddress) error {
	handle, err := p.getHandle()
	if err != nil {
		return err
	}

	ret, _, callErr := procVirtualFreeEx.Call(uintptr(handle), uintptr(addr), 0, uintptr(windows.MEM_RELEASE))
	if ret == 0 {
		return fmt.Errorf("VirtualFreeEx %s failed: %v", addr.ToString(), callErr)
	}
	return nil
}

// CreateThread starts a thread in the process at start with param as its argument.
func (p *WindowsProcess) CreateThread(start, param process.ProcessMemoryAddress) (inject.RemoteThread, error) {
	handle, err := p.getHandle()
	if err != nil {
		return nil, err
	}

	var thread windows.Handle
	status, _, _ := procRtlCreateUserThread.Call(
		uintptr(handle),
		0, // security descriptor
		0, // create suspended
		0, // stack zero bits
		0, // stack reserve
		0, // stack commit
		uintptr(start),
		uintptr(param),
		uintptr(unsafe.Pointer(&thread)),
		0, // client id
	)
	if status != 0 {
		return nil, fmt.Errorf("RtlCreateUserThread failed: %w", windows.NTStatus(status))
	}
	return &WindowsThread{handle: thread}, nil
}
