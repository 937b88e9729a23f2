// Package inject makes another process load a library, either by queuing
// an asynchronous procedure call to its threads or by starting a remote thread.
package inject

import (
	"fmt"
	"strings"

	"rekit/process"
	"rekit/snapshot"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"go.uber.org/multierr"
)

// Method selects an injection strategy
type Method int

const (
	MethodAPC Method = iota
	MethodRemoteThread
)

func (m Method) String() string {
	switch m {
	case MethodAPC:
		return "apc"
	case MethodRemoteThread:
		return "remote-thread"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apc", "queueuserapc":
		return MethodAPC, nil
	case "remote-thread", "remotethread", "thread", "rtlcreateuserthread":
		return MethodRemoteThread, nil
	}
	return MethodAPC, fmt.Errorf("unknown injection method %q", s)
}

// Injector loads the library at path into process pid.
type Injector interface {
	Method() Method
	Inject(pid process.ProcessID, path string) error
}

type options struct {
	log         *logger.Logger
	initialSize int
	maxSize     int
	preflight   bool
}

// Option is a function that configures an Injector
type Option func(*options)

func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithBufferSizes bounds the thread enumeration buffer used by the APC method.
func WithBufferSizes(initial, max int) Option {
	return func(o *options) {
		o.initialSize = initial
		o.maxSize = max
	}
}

// WithPreflight checks that the module is a DLL built for this machine
// before touching the target.
func WithPreflight(enabled bool) Option {
	return func(o *options) {
		o.preflight = enabled
	}
}

func New(method Method, k Kernel, opts ...Option) (Injector, error) {
	o := options{
		log:         logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "inject")),
		initialSize: snapshot.DefaultInitialBufferSize,
		maxSize:     snapshot.DefaultMaxBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch method {
	case MethodAPC:
		return &apcInjector{k: k, opts: o}, nil
	case MethodRemoteThread:
		return &remoteThreadInjector{k: k, opts: o}, nil
	}
	return nil, fmt.Errorf("unknown injection method %v", method)
}

// prepare runs the steps shared by both methods before the target is opened.
func (o options) prepare(k Kernel, path string) (process.ProcessMemoryAddress, []byte, error) {
	if o.preflight {
		if err := CheckModule(path); err != nil {
			return 0, nil, err
		}
	}

	if err := k.EnableDebugPrivilege(); err != nil {
		o.log.Debugln("SeDebugPrivilege not enabled:", err)
	}

	loader, err := k.LoaderAddress()
	if err != nil {
		return 0, nil, fmt.Errorf("resolve loader: %w", err)
	}

	wide, err := process.EncodeUTF16Z(path)
	if err != nil {
		return 0, nil, err
	}
	return loader, wide, nil
}

// writePath copies the encoded path into a fresh allocation in the target.
// The allocation is released again if the write fails.
func writePath(proc RemoteProcess, wide []byte) (process.ProcessMemoryAddress, error) {
	addr, err := proc.Allocate(len(wide))
	if err != nil {
		return 0, fmt.Errorf("allocate %d bytes: %w", len(wide), err)
	}

	if err := proc.WriteMemory(addr, wide); err != nil {
		err = fmt.Errorf("write path: %w", err)
		return 0, multierr.Append(err, proc.Free(addr))
	}
	return addr, nil
}
