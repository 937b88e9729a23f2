//go:build windows

package process_windows

import (
	"fmt"
	"sync"

	"rekit/process"

	"golang.org/x/sys/windows"
)

// WindowsThread is an open handle on a thread
type WindowsThread struct {
	handle windows.Handle
	mu     sync.Mutex
}

// OpenThread opens tid with the given access mask
func OpenThread(tid process.ThreadID, access uint32) (*WindowsThread, error) {
	handle, err := windows.OpenThread(access, false, uint32(tid))
	if err != nil {
		return nil, fmt.Errorf("OpenThread %d failed: %w", tid, err)
	}
	return &WindowsThread{handle: handle}, nil
}

// QueueAPC queues fn(arg) to the thread.
func (t *WindowsThread) QueueAPC(fn, arg process.ProcessMemoryAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ret, _, callErr := procQueueUserAPC.Call(uintptr(fn), uintptr(t.handle), uintptr(arg))
	if ret == 0 {
		return fmt.Errorf("QueueUserAPC failed: %v", callErr)
	}
	return nil
}

// Wait blocks until the thread exits.
func (t *WindowsThread) Wait() error {
	t.mu.Lock()
	handle := t.handle
	t.mu.Unlock()

	event, err := windows.WaitForSingleObject(handle, windows.INFINITE)
	if event == windows.WAIT_FAILED {
		return fmt.Errorf("WaitForSingleObject failed: %w", err)
	}
	return nil
}

func (t *WindowsThread) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(t.handle)
	t.handle = 0
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}
