package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"rekit/inject"

	"github.com/spf13/cobra"
)

func newInjectCommand(e *env) (cmd *cobra.Command) {
	var (
		target      targetFlags
		dll         string
		method      string
		noPreflight bool
	)

	cmd = &cobra.Command{
		Use:   "inject",
		Short: "load a DLL into a process",
		Example: `  rekit inject --name notepad.exe --dll .\hook.dll
  rekit inject --pid 4312 --dll C:\tools\hook.dll --method remote-thread`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dll == "" {
				return errors.New("--dll is required")
			}
			pid, err := target.resolve(e)
			if err != nil {
				return err
			}

			m := e.cfg.InjectMethod()
			if method != "" {
				if m, err = inject.ParseMethod(method); err != nil {
					return err
				}
			}

			path, err := filepath.Abs(dll)
			if err != nil {
				return err
			}

			injector, err := inject.New(m, e.kernel,
				inject.WithLogger(e.log),
				inject.WithBufferSizes(e.cfg.Snapshot.InitialBufferSize, e.cfg.Snapshot.MaxBufferSize),
				inject.WithPreflight(e.cfg.Inject.Preflight && !noPreflight),
			)
			if err != nil {
				return err
			}
			if err := injector.Inject(pid, path); err != nil {
				return err
			}

			fmt.Fprintf(e.out, "injected %s into %d via %s\n", path, pid, injector.Method())
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&dll, "dll", "", "path of the library to load")
	cmd.Flags().StringVar(&method, "method", "", "apc or remote-thread, overrides the config")
	cmd.Flags().BoolVar(&noPreflight, "no-preflight", false, "skip the PE header check")

	return cmd
}
