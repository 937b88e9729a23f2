package inject

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"rekit/process"
	"rekit/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	targetPID  process.ProcessID            = 1234
	loaderAddr process.ProcessMemoryAddress = 0x7FFA00001000
	pathAddr   process.ProcessMemoryAddress = 0x20000
)

var errDenied = errors.New("access denied")

// fakeKernel records every call made against a single target.
type fakeKernel struct {
	snapshot.StaticQuerier

	mu sync.Mutex

	openErr     error
	allocErr    error
	writeErr    error
	createErr   error
	waitErr     error
	loaderErr   error
	refuseAPC   map[process.ThreadID]bool
	unopenable  map[process.ThreadID]bool
	privileged  int
	access      Access
	allocated   map[process.ProcessMemoryAddress][]byte
	freed       []process.ProcessMemoryAddress
	queued      []process.ThreadID
	apcArgs     [][2]process.ProcessMemoryAddress
	threadStart [2]process.ProcessMemoryAddress
	waited      bool
	closed      int
	opened      int
}

func newFakeKernel(tids ...process.ThreadID) *fakeKernel {
	threads := make([]snapshot.ThreadRecord, len(tids))
	for i, tid := range tids {
		threads[i] = snapshot.ThreadRecord{TID: tid}
	}
	return &fakeKernel{
		StaticQuerier: snapshot.StaticQuerier{
			{PID: 4, Name: "System", Threads: []snapshot.ThreadRecord{{TID: 8}}},
			{PID: targetPID, Name: "target.exe", Threads: threads},
		},
		refuseAPC:  map[process.ThreadID]bool{},
		unopenable: map[process.ThreadID]bool{},
		allocated:  map[process.ProcessMemoryAddress][]byte{},
	}
}

func (k *fakeKernel) EnableDebugPrivilege() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.privileged++
	return errors.New("privilege not held")
}

func (k *fakeKernel) OpenProcess(pid process.ProcessID, access Access) (RemoteProcess, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.openErr != nil {
		return nil, k.openErr
	}
	k.access = access
	k.opened++
	return &fakeProcess{k: k}, nil
}

func (k *fakeKernel) OpenThread(tid process.ThreadID) (RemoteThread, error) {
	if k.unopenable[tid] {
		return nil, errDenied
	}
	k.mu.Lock()
	k.opened++
	k.mu.Unlock()
	return &fakeThread{k: k, tid: tid}, nil
}

func (k *fakeKernel) LoaderAddress() (process.ProcessMemoryAddress, error) {
	return loaderAddr, k.loaderErr
}

// live returns the allocations that were never freed.
func (k *fakeKernel) live() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.allocated)
}

func (k *fakeKernel) balanced() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opened == k.closed
}

type fakeProcess struct {
	k *fakeKernel
}

func (p *fakeProcess) Allocate(size int) (process.ProcessMemoryAddress, error) {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	if p.k.allocErr != nil {
		return 0, p.k.allocErr
	}
	p.k.allocated[pathAddr] = make([]byte, size)
	return pathAddr, nil
}

func (p *fakeProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	if p.k.writeErr != nil {
		return p.k.writeErr
	}
	copy(p.k.allocated[addr], data)
	return nil
}

func (p *fakeProcess) Free(addr process.ProcessMemoryAddress) error {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	delete(p.k.allocated, addr)
	p.k.freed = append(p.k.freed, addr)
	return nil
}

func (p *fakeProcess) CreateThread(start, param process.ProcessMemoryAddress) (RemoteThread, error) {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	if p.k.createErr != nil {
		return nil, p.k.createErr
	}
	p.k.threadStart = [2]process.ProcessMemoryAddress{start, param}
	p.k.opened++
	return &fakeThread{k: p.k, tid: 9999}, nil
}

func (p *fakeProcess) Close() error {
	p.k.mu.Lock()
	defer p.k.mu.Unlock()
	p.k.closed++
	return nil
}

type fakeThread struct {
	k   *fakeKernel
	tid process.ThreadID
}

func (t *fakeThread) QueueAPC(fn, arg process.ProcessMemoryAddress) error {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	if t.k.refuseAPC[t.tid] {
		return errDenied
	}
	t.k.queued = append(t.k.queued, t.tid)
	t.k.apcArgs = append(t.k.apcArgs, [2]process.ProcessMemoryAddress{fn, arg})
	return nil
}

func (t *fakeThread) Wait() error {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	t.k.waited = true
	return t.k.waitErr
}

func (t *fakeThread) Close() error {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	t.k.closed++
	return nil
}

func newInjector(t *testing.T, method Method, k Kernel) Injector {
	t.Helper()
	inj, err := New(method, k, WithBufferSizes(256, 1<<20))
	require.NoError(t, err)
	require.Equal(t, method, inj.Method())
	return inj
}

const dllPath = `C:\tools\hook.dll`

func TestAPCInjectQueuesEveryThread(t *testing.T) {
	k := newFakeKernel(10, 11, 12)
	require.NoError(t, newInjector(t, MethodAPC, k).Inject(targetPID, dllPath))

	assert.Equal(t, []process.ThreadID{10, 11, 12}, k.queued)
	for _, args := range k.apcArgs {
		assert.Equal(t, [2]process.ProcessMemoryAddress{loaderAddr, pathAddr}, args)
	}
	assert.Equal(t, AccessQueryInformation|AccessVMOperation|AccessVMWrite|AccessVMRead, k.access)
	assert.Equal(t, 1, k.privileged)

	require.Equal(t, 1, k.live(), "the path stays allocated for the pending calls")
	want, err := process.EncodeUTF16Z(dllPath)
	require.NoError(t, err)
	assert.Equal(t, want, k.allocated[pathAddr])
	assert.True(t, k.balanced())
}

func TestAPCInjectPartialSuccess(t *testing.T) {
	k := newFakeKernel(10, 11, 12)
	k.refuseAPC[10] = true
	k.unopenable[11] = true

	require.NoError(t, newInjector(t, MethodAPC, k).Inject(targetPID, dllPath))
	assert.Equal(t, []process.ThreadID{12}, k.queued)
	assert.Equal(t, 1, k.live())
	assert.True(t, k.balanced())
}

func TestAPCInjectNoThreadAccepts(t *testing.T) {
	k := newFakeKernel(10, 11)
	k.refuseAPC[10] = true
	k.refuseAPC[11] = true

	err := newInjector(t, MethodAPC, k).Inject(targetPID, dllPath)
	assert.ErrorIs(t, err, ErrNoAPCQueued)
	assert.ErrorIs(t, err, errDenied)
	assert.Zero(t, k.live(), "the path is released when nothing was queued")
	assert.Equal(t, []process.ProcessMemoryAddress{pathAddr}, k.freed)
	assert.True(t, k.balanced())
}

func TestAPCInjectNoThreads(t *testing.T) {
	k := newFakeKernel()
	err := newInjector(t, MethodAPC, k).Inject(targetPID, dllPath)
	assert.ErrorIs(t, err, ErrNoThreads)
	assert.Zero(t, k.live())

	k = newFakeKernel(10)
	err = newInjector(t, MethodAPC, k).Inject(555, dllPath)
	assert.ErrorIs(t, err, ErrNoThreads, "pid missing from the fresh snapshot")
	assert.Zero(t, k.live())
}

func TestInjectEarlyFailures(t *testing.T) {
	for _, method := range []Method{MethodAPC, MethodRemoteThread} {
		t.Run(method.String(), func(t *testing.T) {
			k := newFakeKernel(10)
			k.openErr = errDenied
			err := newInjector(t, method, k).Inject(targetPID, dllPath)
			assert.ErrorIs(t, err, errDenied)

			k = newFakeKernel(10)
			k.loaderErr = errors.New("kernel32 missing")
			err = newInjector(t, method, k).Inject(targetPID, dllPath)
			assert.Error(t, err)
			assert.Zero(t, k.opened, "target untouched when the loader is unknown")

			k = newFakeKernel(10)
			k.allocErr = errDenied
			err = newInjector(t, method, k).Inject(targetPID, dllPath)
			assert.ErrorIs(t, err, errDenied)
			assert.Empty(t, k.freed)
			assert.True(t, k.balanced())

			k = newFakeKernel(10)
			k.writeErr = errDenied
			err = newInjector(t, method, k).Inject(targetPID, dllPath)
			assert.ErrorIs(t, err, errDenied)
			assert.Zero(t, k.live())
			assert.Equal(t, []process.ProcessMemoryAddress{pathAddr}, k.freed)
			assert.Empty(t, k.queued)
			assert.True(t, k.balanced())
		})
	}
}

func TestRemoteThreadInject(t *testing.T) {
	k := newFakeKernel(10)
	require.NoError(t, newInjector(t, MethodRemoteThread, k).Inject(targetPID, dllPath))

	assert.Equal(t, [2]process.ProcessMemoryAddress{loaderAddr, pathAddr}, k.threadStart)
	assert.True(t, k.waited)
	assert.Zero(t, k.live(), "the path is released after the thread finished")
	assert.Equal(t, AccessCreateThread|AccessQueryInformation|AccessVMOperation|AccessVMWrite|AccessVMRead, k.access)
	assert.Empty(t, k.queued)
	assert.True(t, k.balanced())
}

func TestRemoteThreadCreateFails(t *testing.T) {
	k := newFakeKernel(10)
	k.createErr = errDenied

	err := newInjector(t, MethodRemoteThread, k).Inject(targetPID, dllPath)
	assert.ErrorIs(t, err, errDenied)
	assert.False(t, k.waited)
	assert.Zero(t, k.live())
	assert.True(t, k.balanced())
}

func TestRemoteThreadWaitFails(t *testing.T) {
	k := newFakeKernel(10)
	k.waitErr = errors.New("wait abandoned")

	err := newInjector(t, MethodRemoteThread, k).Inject(targetPID, dllPath)
	assert.Error(t, err)
	assert.Zero(t, k.live())
	assert.True(t, k.balanced())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Remote-Thread")
	require.NoError(t, err)
	assert.Equal(t, MethodRemoteThread, m)

	m, err = ParseMethod("apc")
	require.NoError(t, err)
	assert.Equal(t, MethodAPC, m)

	_, err = ParseMethod("hollowing")
	assert.Error(t, err)

	_, err = New(Method(9), newFakeKernel())
	assert.Error(t, err)
}

func TestPreflightRejectsBeforeOpening(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "notes.dll")
	require.NoError(t, os.WriteFile(bogus, []byte("not a portable executable"), 0o600))

	k := newFakeKernel(10)
	inj, err := New(MethodAPC, k, WithPreflight(true))
	require.NoError(t, err)

	assert.Error(t, inj.Inject(targetPID, bogus))
	assert.Error(t, inj.Inject(targetPID, filepath.Join(dir, "missing.dll")))
	assert.Zero(t, k.opened)
	assert.Zero(t, k.privileged)
}

func TestCheckHeader(t *testing.T) {
	assert.NoError(t, checkHeader(0x8664, 0x2022, "amd64"))
	assert.ErrorIs(t, checkHeader(0x8664, 0x0022, "amd64"), ErrNotDLL)
	assert.ErrorIs(t, checkHeader(0x014c, 0x2102, "amd64"), ErrMachineMismatch)
	assert.NoError(t, checkHeader(0x014c, 0x2102, "386"))
	assert.NoError(t, checkHeader(0x5064, 0x2000, "riscv64"), "unknown arch skips the machine check")
}
