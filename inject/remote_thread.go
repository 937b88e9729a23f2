package inject

import (
	"fmt"

	"rekit/process"

	"go.uber.org/multierr"
)

type remoteThreadInjector struct {
	k    Kernel
	opts options
}

func (r *remoteThreadInjector) Method() Method {
	return MethodRemoteThread
}

// Inject writes the path into the target, runs the loader on a new thread
// there and waits for it to finish before releasing the path.
func (r *remoteThreadInjector) Inject(pid process.ProcessID, path string) (err error) {
	loader, wide, err := r.opts.prepare(r.k, path)
	if err != nil {
		return err
	}

	proc, err := r.k.OpenProcess(pid, AccessCreateThread|AccessQueryInformation|AccessVMOperation|AccessVMWrite|AccessVMRead)
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer func() {
		err = multierr.Append(err, proc.Close())
	}()

	addr, err := writePath(proc, wide)
	if err != nil {
		return err
	}

	th, err := proc.CreateThread(loader, addr)
	if err != nil {
		err = fmt.Errorf("create remote thread: %w", err)
		return multierr.Append(err, proc.Free(addr))
	}

	if err := th.Wait(); err != nil {
		err = fmt.Errorf("wait for remote thread: %w", err)
		return multierr.Combine(err, th.Close(), proc.Free(addr))
	}

	if err := th.Close(); err != nil {
		r.opts.log.Debugln("Closing remote thread handle:", err)
	}
	if err := proc.Free(addr); err != nil {
		r.opts.log.Warn("Releasing path in pid ", pid, ": ", err)
	}

	r.opts.log.Infoln("Remote thread loaded", path, "into pid", pid)
	return nil
}
