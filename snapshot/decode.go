package snapshot

import (
	"encoding/binary"
	"fmt"

	"rekit/process"
)

// Layout of SYSTEM_PROCESS_INFORMATION and SYSTEM_THREAD_INFORMATION on 64-bit Windows.
const (
	processEntrySize = 0x100
	threadEntrySize  = 0x50

	offNextEntry          = 0x00
	offNumberOfThreads    = 0x04
	offCreateTime         = 0x20
	offUserTime           = 0x28
	offKernelTime         = 0x30
	offImageNameLength    = 0x38
	offImageNameBuffer    = 0x40
	offBasePriority       = 0x48
	offUniqueProcessID    = 0x50
	offInheritedFromPID   = 0x58
	offHandleCount        = 0x60
	offSessionID          = 0x64
	offVirtualSize        = 0x78
	offWorkingSetSize     = 0x90
	offPrivatePageCount   = 0xC8
	offReadTransferCount  = 0xE8
	offWriteTransferCount = 0xF0
	offOtherTransferCount = 0xF8

	offThreadKernelTime      = 0x00
	offThreadUserTime        = 0x08
	offThreadCreateTime      = 0x10
	offThreadStartAddress    = 0x20
	offThreadUniqueThread    = 0x30
	offThreadPriority        = 0x38
	offThreadBasePriority    = 0x3C
	offThreadContextSwitches = 0x40
	offThreadState           = 0x44
	offThreadWaitReason      = 0x48
)

const idleProcessName = "(System Idle Process)"

var le = binary.LittleEndian

// Decode walks a chain of process entries. base is the address buf had when
// the kernel filled it; embedded name pointers are translated against it and
// must land inside buf.
func Decode(buf []byte, base uint64) ([]ProcessRecord, error) {
	var records []ProcessRecord

	offset := 0
	for {
		if offset+processEntrySize > len(buf) {
			return nil, fmt.Errorf("%w: entry at %#x overruns buffer of %d bytes", ErrDecode, offset, len(buf))
		}
		entry := buf[offset:]

		rec, err := decodeProcess(buf, entry, base)
		if err != nil {
			return nil, fmt.Errorf("entry at %#x: %w", offset, err)
		}
		records = append(records, rec)

		next := int(le.Uint32(entry[offNextEntry:]))
		if next == 0 {
			break
		}
		if next < processEntrySize {
			return nil, fmt.Errorf("%w: next entry offset %#x at %#x", ErrDecode, next, offset)
		}
		offset += next
	}

	return records, nil
}

func decodeProcess(buf, entry []byte, base uint64) (ProcessRecord, error) {
	threads := le.Uint32(entry[offNumberOfThreads:])
	threadBytes := uint64(threads) * threadEntrySize
	if uint64(processEntrySize)+threadBytes > uint64(len(entry)) {
		return ProcessRecord{}, fmt.Errorf("%w: %d threads overrun buffer", ErrDecode, threads)
	}

	name, err := decodeName(buf, entry, base)
	if err != nil {
		return ProcessRecord{}, err
	}

	rec := ProcessRecord{
		PID:                process.ProcessID(le.Uint64(entry[offUniqueProcessID:])),
		ParentPID:          process.ProcessID(le.Uint64(entry[offInheritedFromPID:])),
		Name:               name,
		ThreadCount:        threads,
		HandleCount:        le.Uint32(entry[offHandleCount:]),
		SessionID:          le.Uint32(entry[offSessionID:]),
		BasePriority:       int32(le.Uint32(entry[offBasePriority:])),
		CreateTime:         filetimeToTime(int64(le.Uint64(entry[offCreateTime:]))),
		UserTime:           ticksToDuration(int64(le.Uint64(entry[offUserTime:]))),
		KernelTime:         ticksToDuration(int64(le.Uint64(entry[offKernelTime:]))),
		VirtualSize:        le.Uint64(entry[offVirtualSize:]),
		WorkingSetSize:     le.Uint64(entry[offWorkingSetSize:]),
		PrivateBytes:       le.Uint64(entry[offPrivatePageCount:]),
		ReadTransferCount:  le.Uint64(entry[offReadTransferCount:]),
		WriteTransferCount: le.Uint64(entry[offWriteTransferCount:]),
		OtherTransferCount: le.Uint64(entry[offOtherTransferCount:]),
		Threads:            make([]ThreadRecord, threads),
	}

	for i := range rec.Threads {
		t := entry[processEntrySize+i*threadEntrySize:]
		rec.Threads[i] = ThreadRecord{
			TID:             process.ThreadID(le.Uint64(t[offThreadUniqueThread:])),
			StartAddress:    process.ProcessMemoryAddress(le.Uint64(t[offThreadStartAddress:])),
			Priority:        int32(le.Uint32(t[offThreadPriority:])),
			BasePriority:    int32(le.Uint32(t[offThreadBasePriority:])),
			ContextSwitches: le.Uint32(t[offThreadContextSwitches:]),
			State:           process.ThreadState(le.Uint32(t[offThreadState:])),
			WaitReason:      le.Uint32(t[offThreadWaitReason:]),
			CreateTime:      filetimeToTime(int64(le.Uint64(t[offThreadCreateTime:]))),
			UserTime:        ticksToDuration(int64(le.Uint64(t[offThreadUserTime:]))),
			KernelTime:      ticksToDuration(int64(le.Uint64(t[offThreadKernelTime:]))),
		}
	}

	return rec, nil
}

func decodeName(buf, entry []byte, base uint64) (string, error) {
	length := uint64(le.Uint16(entry[offImageNameLength:]))
	ptr := le.Uint64(entry[offImageNameBuffer:])
	if length == 0 || ptr == 0 {
		return idleProcessName, nil
	}

	if ptr < base || ptr-base > uint64(len(buf)) || length > uint64(len(buf))-(ptr-base) {
		return "", fmt.Errorf("%w: image name at %#x outside buffer", ErrDecode, ptr)
	}
	start := ptr - base

	name, err := process.DecodeUTF16(buf[start : start+length&^1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return name, nil
}
