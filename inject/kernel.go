package inject

import (
	"rekit/process"
	"rekit/snapshot"
)

// Access is a process access mask.
type Access uint32

const (
	AccessCreateThread     Access = 0x0002
	AccessVMOperation      Access = 0x0008
	AccessVMRead           Access = 0x0010
	AccessVMWrite          Access = 0x0020
	AccessQueryInformation Access = 0x0400
)

// Kernel is the set of operating system services injection is built on.
type Kernel interface {
	snapshot.Querier

	// EnableDebugPrivilege asks for SeDebugPrivilege on the current token.
	EnableDebugPrivilege() error

	OpenProcess(pid process.ProcessID, access Access) (RemoteProcess, error)

	// OpenThread opens tid with the rights needed to queue an APC to it.
	OpenThread(tid process.ThreadID) (RemoteThread, error)

	// LoaderAddress is the address of the wide-string library loader, which
	// is the same in every process of the session.
	LoaderAddress() (process.ProcessMemoryAddress, error)
}

// RemoteProcess is an opened target process.
type RemoteProcess interface {
	// Allocate reserves and commits size bytes of read/write memory.
	Allocate(size int) (process.ProcessMemoryAddress, error)
	WriteMemory(addr process.ProcessMemoryAddress, data []byte) error
	Free(addr process.ProcessMemoryAddress) error

	// CreateThread starts a thread at start with param as its argument.
	CreateThread(start, param process.ProcessMemoryAddress) (RemoteThread, error)

	Close() error
}

// RemoteThread is an opened thread handle.
type RemoteThread interface {
	// QueueAPC queues fn(arg) to run when the thread next enters an alertable wait.
	QueueAPC(fn, arg process.ProcessMemoryAddress) error

	// Wait blocks until the thread exits.
	Wait() error

	Close() error
}
