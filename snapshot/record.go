// Package snapshot keeps a periodically refreshed table of the processes and
// threads running on the system.
package snapshot

import (
	"slices"
	"time"

	"rekit/process"
)

// ThreadRecord describes one thread of a process at snapshot time.
type ThreadRecord struct {
	TID             process.ThreadID
	StartAddress    process.ProcessMemoryAddress
	Priority        int32
	BasePriority    int32
	ContextSwitches uint32
	State           process.ThreadState
	WaitReason      uint32
	CreateTime      time.Time
	UserTime        time.Duration
	KernelTime      time.Duration
}

// ProcessRecord describes one process at snapshot time. Records are not
// modified once a snapshot has been published.
type ProcessRecord struct {
	PID          process.ProcessID
	ParentPID    process.ProcessID
	Name         string
	ImagePath    string // empty when the path could not be resolved
	ThreadCount  uint32
	HandleCount  uint32
	SessionID    uint32
	BasePriority int32

	CreateTime time.Time
	UserTime   time.Duration
	KernelTime time.Duration

	VirtualSize    uint64
	WorkingSetSize uint64
	PrivateBytes   uint64

	ReadTransferCount  uint64
	WriteTransferCount uint64
	OtherTransferCount uint64

	Threads []ThreadRecord
}

// clone returns a copy that shares no memory with r.
func (r ProcessRecord) clone() ProcessRecord {
	r.Threads = slices.Clone(r.Threads)
	return r
}

// ThreadIDs lists the thread ids of the record in snapshot order.
func (r ProcessRecord) ThreadIDs() []process.ThreadID {
	out := make([]process.ThreadID, len(r.Threads))
	for i, t := range r.Threads {
		out[i] = t.TID
	}
	return out
}

// filetimeEpoch is 1970-01-01 expressed in 100ns ticks since 1601-01-01.
const filetimeEpoch = 116444736000000000

func filetimeToTime(ticks int64) time.Time {
	if ticks <= 0 {
		return time.Time{}
	}
	return time.Unix(0, (ticks-filetimeEpoch)*100).UTC()
}

func ticksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100
}
