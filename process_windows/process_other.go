//go:build !windows

package process_windows

import (
	"rekit/inject"
	"rekit/process"
	"rekit/snapshot"
)

func OpenForScan(pid process.ProcessID) (process.Process, error) {
	return nil, process.ErrUnsupported
}

func EnableDebugPrivilege() error {
	return process.ErrUnsupported
}

func ListModules(pid process.ProcessID) ([]process.ModuleRecord, error) {
	return nil, process.ErrUnsupported
}

func Terminate(pid process.ProcessID) error {
	if err := checkTerminable(pid); err != nil {
		return err
	}
	return process.ErrUnsupported
}

type Kernel struct {
	SystemInformation
}

var _ inject.Kernel = (*Kernel)(nil)

func NewKernel() *Kernel {
	return &Kernel{}
}

func (k *Kernel) EnableDebugPrivilege() error {
	return process.ErrUnsupported
}

func (k *Kernel) OpenProcess(pid process.ProcessID, access inject.Access) (inject.RemoteProcess, error) {
	return nil, process.ErrUnsupported
}

func (k *Kernel) OpenThread(tid process.ThreadID) (inject.RemoteThread, error) {
	return nil, process.ErrUnsupported
}

func (k *Kernel) LoaderAddress() (process.ProcessMemoryAddress, error) {
	return 0, process.ErrUnsupported
}

type SystemInformation struct{}

var _ snapshot.Querier = SystemInformation{}

func NewSystemInformation() SystemInformation {
	return SystemInformation{}
}

func (SystemInformation) QuerySystemInformation(buf []byte) (int, error) {
	return 0, process.ErrUnsupported
}

type ImagePaths struct{}

var _ snapshot.PathResolver = ImagePaths{}

func NewImagePaths() ImagePaths {
	return ImagePaths{}
}

func (ImagePaths) ImagePath(pid process.ProcessID) (string, error) {
	return "", process.ErrUnsupported
}
