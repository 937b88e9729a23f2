package process

import "strconv"

// ThreadState is the scheduler state of a thread (KTHREAD_STATE)
type ThreadState uint32

const (
	ThreadInitialized ThreadState = iota
	ThreadReady
	ThreadRunning
	ThreadStandby
	ThreadTerminated
	ThreadWaiting
	ThreadTransition
	ThreadDeferredReady
	ThreadGateWait
	ThreadWaitingForSwap
)

var threadStateNames = [...]string{
	ThreadInitialized:    "Initialized",
	ThreadReady:          "Ready",
	ThreadRunning:        "Running",
	ThreadStandby:        "Standby",
	ThreadTerminated:     "Terminated",
	ThreadWaiting:        "Waiting",
	ThreadTransition:     "Transition",
	ThreadDeferredReady:  "DeferredReady",
	ThreadGateWait:       "GateWait",
	ThreadWaitingForSwap: "WaitingForSwap",
}

func (s ThreadState) String() string {
	if int(s) < len(threadStateNames) {
		return threadStateNames[s]
	}
	return "State(" + strconv.FormatUint(uint64(s), 10) + ")"
}
