package process

import (
	"rekit/process/memory_map"
)

// MemoryReader copies target memory into a caller buffer.
type MemoryReader interface {
	// ReadMemory reads len(buf) bytes at addr. It returns the number of bytes
	// copied; a failed or short read reports an error.
	ReadMemory(addr ProcessMemoryAddress, buf []byte) (int, error)
}

// Process is an opened target whose memory can be read and whose address
// space can be walked one region at a time.
type Process interface {
	MemoryReader
	memory_map.RegionQuerier

	// GetPID returns the ID of the process
	GetPID() ProcessID

	// Close releases the handle on the process
	Close() error
}

// OpenFunc opens a process for reading.
type OpenFunc func(pid ProcessID) (Process, error)
