package snapshot

import (
	"sync"
	"unsafe"

	"rekit/process"
)

type fakeThread struct {
	tid      uint64
	start    uint64
	priority int32
}

type fakeProcess struct {
	pid        uint64
	ppid       uint64
	name       string
	handles    uint32
	session    uint32
	created    int64
	workingSet uint64
	threads    []fakeThread
}

func nameBytes(name string) []byte {
	if name == "" {
		return nil
	}
	b, err := process.EncodeUTF16(name)
	if err != nil {
		panic(err)
	}
	return b
}

func entrySize(p fakeProcess) int {
	n := processEntrySize + len(p.threads)*threadEntrySize + len(nameBytes(p.name))
	return (n + 7) &^ 7
}

func layoutSize(procs []fakeProcess) int {
	total := 0
	for _, p := range procs {
		total += entrySize(p)
	}
	return total
}

// writeEntries lays procs out in buf the way the kernel does, with name
// pointers relative to the address of buf.
func writeEntries(buf []byte, procs []fakeProcess) int {
	base := uint64(uintptr(unsafe.Pointer(&buf[0])))
	offset := 0
	for i, p := range procs {
		e := buf[offset:]
		size := entrySize(p)
		if i < len(procs)-1 {
			le.PutUint32(e[offNextEntry:], uint32(size))
		}
		le.PutUint32(e[offNumberOfThreads:], uint32(len(p.threads)))
		le.PutUint64(e[offCreateTime:], uint64(p.created))
		le.PutUint64(e[offUserTime:], 20)
		le.PutUint64(e[offKernelTime:], 10)
		le.PutUint64(e[offUniqueProcessID:], p.pid)
		le.PutUint64(e[offInheritedFromPID:], p.ppid)
		le.PutUint32(e[offHandleCount:], p.handles)
		le.PutUint32(e[offSessionID:], p.session)
		le.PutUint64(e[offWorkingSetSize:], p.workingSet)

		for j, t := range p.threads {
			te := e[processEntrySize+j*threadEntrySize:]
			le.PutUint64(te[offThreadStartAddress:], t.start)
			le.PutUint64(te[offThreadUniqueThread-8:], p.pid)
			le.PutUint64(te[offThreadUniqueThread:], t.tid)
			le.PutUint32(te[offThreadPriority:], uint32(t.priority))
		}

		if name := nameBytes(p.name); len(name) > 0 {
			nameOff := processEntrySize + len(p.threads)*threadEntrySize
			copy(e[nameOff:], name)
			le.PutUint16(e[offImageNameLength:], uint16(len(name)))
			le.PutUint16(e[offImageNameLength+2:], uint16(len(name)))
			le.PutUint64(e[offImageNameBuffer:], base+uint64(offset+nameOff))
		}
		offset += size
	}
	return offset
}

func buildBuffer(procs []fakeProcess) ([]byte, uint64) {
	buf := make([]byte, layoutSize(procs))
	writeEntries(buf, procs)
	return buf, uint64(uintptr(unsafe.Pointer(&buf[0])))
}

// fakeQuerier serves procs, failing with a length mismatch whenever the
// buffer is too small or a forced mismatch is pending.
type fakeQuerier struct {
	mu       sync.Mutex
	procs    []fakeProcess
	mismatch int
	err      error
	sizes    []int
}

func (q *fakeQuerier) QuerySystemInformation(buf []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sizes = append(q.sizes, len(buf))
	if q.err != nil {
		return 0, q.err
	}
	if q.mismatch > 0 {
		q.mismatch--
		return 0, ErrInfoLengthMismatch
	}
	if len(buf) < layoutSize(q.procs) {
		return 0, ErrInfoLengthMismatch
	}
	return writeEntries(buf, q.procs), nil
}

func (q *fakeQuerier) set(procs []fakeProcess, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.procs, q.err = procs, err
}

func (q *fakeQuerier) calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.sizes)
}

var sampleProcesses = []fakeProcess{
	{pid: 0, name: "", threads: []fakeThread{{tid: 0}}},
	{pid: 4, name: "System", handles: 3000, threads: []fakeThread{{tid: 8}, {tid: 12}}},
	{pid: 1234, ppid: 4, name: "notepad.exe", handles: 120, session: 1, created: 133000000000000000, workingSet: 4 << 20,
		threads: []fakeThread{{tid: 5000, start: 0x7FF600001000, priority: 8}}},
	{pid: 2222, ppid: 1234, name: "Calc.exe", handles: 80, session: 1, created: 133000000000000001,
		threads: []fakeThread{{tid: 6000}, {tid: 6004}, {tid: 6008}}},
}
