package main

import (
	"io"
	"os"

	"rekit/config"
	"rekit/inject"
	"rekit/panel"
	"rekit/process"
	"rekit/process_windows"
	"rekit/snapshot"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

// env is everything the commands touch outside the process itself.
type env struct {
	cfg config.Config

	open        process.OpenFunc
	querier     snapshot.Querier
	paths       snapshot.PathResolver
	kernel      inject.Kernel
	listModules func(pid process.ProcessID) ([]process.ModuleRecord, error)
	terminate   func(pid process.ProcessID) error

	clock    clock.Clock
	selected panel.SelectedPID
	log      *logger.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func defaultEnv() *env {
	return &env{
		cfg:         config.Default(),
		open:        process_windows.OpenForScan,
		querier:     process_windows.NewSystemInformation(),
		paths:       process_windows.NewImagePaths(),
		kernel:      process_windows.NewKernel(),
		listModules: process_windows.ListModules,
		terminate:   process_windows.Terminate,
		clock:       clock.New(),
		log:         logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.Black, "rekit")),
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
	}
}

// newService builds a snapshot service from the loaded configuration.
func (e *env) newService() *snapshot.Service {
	return snapshot.NewService(e.querier, e.paths,
		snapshot.WithClock(e.clock),
		snapshot.WithPollInterval(e.cfg.Snapshot.PollInterval),
		snapshot.WithBufferSizes(e.cfg.Snapshot.InitialBufferSize, e.cfg.Snapshot.MaxBufferSize),
		snapshot.WithPathCacheSize(e.cfg.Snapshot.ImagePathCacheSize),
	)
}

// NewCommand returns the root command for the rekit CLI
func NewCommand(e *env) (cmd *cobra.Command) {
	var configPath string

	cmd = &cobra.Command{
		Use:          "rekit",
		Short:        "process inspection toolkit",
		Long:         `rekit lists processes, scans their memory and loads modules into them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(e.out)
			cmd.SetErr(e.errOut)
			if configPath == "" {
				return nil
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log.Debugln("Loaded config", configPath)
			return nil
		},
	}

	cmd.AddCommand(
		newPSCommand(e),
		newTopCommand(e),
		newModulesCommand(e),
		newPeekCommand(e),
		newScanCommand(e),
		newInjectCommand(e),
		newKillCommand(e),
	)

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	return cmd
}
