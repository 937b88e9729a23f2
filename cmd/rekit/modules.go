package main

import (
	"sort"

	"github.com/spf13/cobra"
)

func newModulesCommand(e *env) (cmd *cobra.Command) {
	var target targetFlags

	cmd = &cobra.Command{
		Use:   "modules",
		Short: "list the images loaded in a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := target.resolve(e)
			if err != nil {
				return err
			}
			modules, err := e.listModules(pid)
			if err != nil {
				return err
			}
			sort.Slice(modules, func(i, j int) bool { return modules[i].Base < modules[j].Base })
			renderModules(e.out, modules)
			return nil
		},
	}

	target.register(cmd)

	return cmd
}
