package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKillCommand(e *env) (cmd *cobra.Command) {
	var target targetFlags

	cmd = &cobra.Command{
		Use:   "kill",
		Short: "terminate a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := target.resolve(e)
			if err != nil {
				return err
			}
			if err := e.terminate(pid); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "terminated %d\n", pid)
			return nil
		},
	}

	target.register(cmd)

	return cmd
}
