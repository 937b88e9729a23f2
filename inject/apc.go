package inject

import (
	"fmt"

	"rekit/process"
	"rekit/snapshot"

	"go.uber.org/multierr"
)

type apcInjector struct {
	k    Kernel
	opts options
}

func (a *apcInjector) Method() Method {
	return MethodAPC
}

// Inject writes the path into the target and queues the loader to every
// thread of it. The path allocation stays in place once any APC is queued,
// since the call runs later on the target's own schedule.
func (a *apcInjector) Inject(pid process.ProcessID, path string) (err error) {
	loader, wide, err := a.opts.prepare(a.k, path)
	if err != nil {
		return err
	}

	proc, err := a.k.OpenProcess(pid, AccessQueryInformation|AccessVMOperation|AccessVMWrite|AccessVMRead)
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

	queued, err := a.queueAll(pid, loader, addr)
	if queued == 0 {
		return multierr.Append(err, proc.Free(addr))
	}

	a.opts.log.Infoln("Queued loader APC to", queued, "threads of pid", pid, "path", path)
	if err != nil {
		a.opts.log.Debugln("Some threads refused the APC:", err)
	}
	return nil
}

// queueAll takes a fresh thread list for pid and queues fn(arg) to each
// thread. It returns how many threads accepted the call.
func (a *apcInjector) queueAll(pid process.ProcessID, fn, arg process.ProcessMemoryAddress) (int, error) {
	tids, err := a.threads(pid)
	if err != nil {
		return 0, err
	}

	var errs error
	queued := 0
	for _, tid := range tids {
		th, err := a.k.OpenThread(tid)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("open thread %d: %w", tid, err))
			continue
		}

		if err := th.QueueAPC(fn, arg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("queue apc to thread %d: %w", tid, err))
		} else {
			queued++
		}
		errs = multierr.Append(errs, th.Close())
	}

	if queued == 0 {
		return 0, multierr.Append(ErrNoAPCQueued, errs)
	}
	return queued, errs
}

func (a *apcInjector) threads(pid process.ProcessID) ([]process.ThreadID, error) {
	records, err := snapshot.QueryProcesses(a.k, a.opts.initialSize, a.opts.maxSize)
	if err != nil {
		return nil, fmt.Errorf("enumerate threads: %w", err)
	}

	for _, rec := range records {
		if rec.PID == pid {
			if len(rec.Threads) == 0 {
				break
			}
			return rec.ThreadIDs(), nil
		}
	}
	return nil, fmt.Errorf("%w: pid %d", ErrNoThreads, pid)
}
