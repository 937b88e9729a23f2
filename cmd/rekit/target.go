package main

import (
	"errors"
	"sort"

	"rekit/process"

	"github.com/spf13/cobra"
)

var errNoTarget = errors.New("a target is required: pass --pid or --name")

// targetFlags selects the process a command acts on.
type targetFlags struct {
	pid  uint32
	name string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&t.pid, "pid", 0, "target process id")
	cmd.Flags().StringVar(&t.name, "name", "", "target process name (first match by pid)")
}

// resolve returns the process chosen by --name, falling back to --pid.
func (t *targetFlags) resolve(e *env) (process.ProcessID, error) {
	if t.name != "" {
		svc := e.newService()
		e.selected.SetProvider(func() process.ProcessID {
			if err := svc.Refresh(); err != nil {
				return 0
			}
			records, err := svc.Filter(t.name, "", "")
			if err != nil || len(records) == 0 {
				return 0
			}
			sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
			return records[0].PID
		})
		defer e.selected.SetProvider(nil)
	}

	pid := e.selected.Get(process.ProcessID(t.pid))
	if pid == 0 {
		return 0, errNoTarget
	}
	return pid, nil
}
