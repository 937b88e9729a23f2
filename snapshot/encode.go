package snapshot

import (
	"fmt"
	"time"
	"unsafe"

	"rekit/process"
)

// EncodedSize is the number of bytes Encode needs for records.
func EncodedSize(records []ProcessRecord) int {
	total := 0
	for _, rec := range records {
		total += encodedEntrySize(rec)
	}
	return total
}

func encodedEntrySize(rec ProcessRecord) int {
	n := processEntrySize + len(rec.Threads)*threadEntrySize + 2*len(utf16Units(rec.Name))
	return (n + 7) &^ 7
}

func utf16Units(s string) []byte {
	if s == "" || s == idleProcessName {
		return nil
	}
	b, err := process.EncodeUTF16(s)
	if err != nil {
		return nil
	}
	return b[:len(b)&^1]
}

// Encode lays records out in buf in the layout Decode reads, with name
// pointers relative to the address of buf. It returns the bytes written, or
// ErrInfoLengthMismatch when buf is too small.
func Encode(records []ProcessRecord, buf []byte) (int, error) {
	need := EncodedSize(records)
	if need == 0 {
		return 0, fmt.Errorf("%w: no records", ErrDecode)
	}
	if len(buf) < need {
		return 0, ErrInfoLengthMismatch
	}
	clear(buf[:need])

	base := uint64(uintptr(unsafe.Pointer(&buf[0])))
	offset := 0
	for i, rec := range records {
		e := buf[offset:]
		size := encodedEntrySize(rec)
		if i < len(records)-1 {
			le.PutUint32(e[offNextEntry:], uint32(size))
		}

		le.PutUint32(e[offNumberOfThreads:], uint32(len(rec.Threads)))
		le.PutUint64(e[offCreateTime:], uint64(timeToFiletime(rec.CreateTime)))
		le.PutUint64(e[offUserTime:], uint64(rec.UserTime/100))
		le.PutUint64(e[offKernelTime:], uint64(rec.KernelTime/100))
		le.PutUint32(e[offBasePriority:], uint32(rec.BasePriority))
		le.PutUint64(e[offUniqueProcessID:], uint64(rec.PID))
		le.PutUint64(e[offInheritedFromPID:], uint64(rec.ParentPID))
		le.PutUint32(e[offHandleCount:], rec.HandleCount)
		le.PutUint32(e[offSessionID:], rec.SessionID)
		le.PutUint64(e[offVirtualSize:], rec.VirtualSize)
		le.PutUint64(e[offWorkingSetSize:], rec.WorkingSetSize)
		le.PutUint64(e[offPrivatePageCount:], rec.PrivateBytes)
		le.PutUint64(e[offReadTransferCount:], rec.ReadTransferCount)
		le.PutUint64(e[offWriteTransferCount:], rec.WriteTransferCount)
		le.PutUint64(e[offOtherTransferCount:], rec.OtherTransferCount)

		for j, t := range rec.Threads {
			te := e[processEntrySize+j*threadEntrySize:]
			le.PutUint64(te[offThreadKernelTime:], uint64(t.KernelTime/100))
			le.PutUint64(te[offThreadUserTime:], uint64(t.UserTime/100))
			le.PutUint64(te[offThreadCreateTime:], uint64(timeToFiletime(t.CreateTime)))
			le.PutUint64(te[offThreadStartAddress:], uint64(t.StartAddress))
			le.PutUint64(te[offThreadUniqueThread-8:], uint64(rec.PID))
			le.PutUint64(te[offThreadUniqueThread:], uint64(t.TID))
			le.PutUint32(te[offThreadPriority:], uint32(t.Priority))
			le.PutUint32(te[offThreadBasePriority:], uint32(t.BasePriority))
			le.PutUint32(te[offThreadContextSwitches:], t.ContextSwitches)
			le.PutUint32(te[offThreadState:], uint32(t.State))
			le.PutUint32(te[offThreadWaitReason:], t.WaitReason)
		}

		if name := utf16Units(rec.Name); len(name) > 0 {
			nameOff := processEntrySize + len(rec.Threads)*threadEntrySize
			copy(e[nameOff:], name)
			le.PutUint16(e[offImageNameLength:], uint16(len(name)))
			le.PutUint16(e[offImageNameLength+2:], uint16(len(name)))
			le.PutUint64(e[offImageNameBuffer:], base+uint64(offset+nameOff))
		}
		offset += size
	}

	return offset, nil
}

func timeToFiletime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()/100 + filetimeEpoch
}

// StaticQuerier serves a fixed process table.
type StaticQuerier []ProcessRecord

func (q StaticQuerier) QuerySystemInformation(buf []byte) (int, error) {
	return Encode(q, buf)
}
