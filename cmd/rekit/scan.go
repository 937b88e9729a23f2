package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"rekit/hexdump"
	"rekit/process"
	"rekit/process/memory_map"
	"rekit/search"

	"github.com/spf13/cobra"
)

var errUnknownCommand = errors.New("unknown command, try help")

const sessionHelp = `commands:
  next <eq|inc|dec|ne|same> [value]  filter the current matches
  first [value]                      start over with a new first scan
  list [n]                           show the first n matches
  dump <index>                       hexdump memory around a match
  help
  quit
`

func newScanCommand(e *env) (cmd *cobra.Command) {
	var (
		target      targetFlags
		kind        string
		base        string
		length      uint64
		noAuto      bool
		align       uint
		show        int
		interactive bool
	)

	cmd = &cobra.Command{
		Use:   "scan [value]",
		Short: "search the memory of a process",
		Example: `  rekit scan --name game.exe --type int32 1234 -i
  rekit scan --pid 4312 --type bytes "48 8B ?? ?? 89"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := target.resolve(e)
			if err != nil {
				return err
			}
			k, err := search.ParseValueKind(kind)
			if err != nil {
				return err
			}
			baseAddr, err := parseAddress(base)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("align") {
				align = e.cfg.Scan.Alignment
			}

			s := &scanSession{
				e:       e,
				scanner: search.NewScanner(e.open, search.WithChunkSize(e.cfg.Scan.ChunkSize)),
				opts: search.ScanOptions{
					PID:       pid,
					Base:      baseAddr,
					Length:    process.ProcessMemorySize(length),
					AutoPages: !noAuto,
					Alignment: align,
					Kind:      k,
					Compare:   search.CompareExact,
				},
				show: show,
			}
			if len(args) > 0 {
				s.opts.Expression = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := s.first(ctx, s.opts.Expression); err != nil {
				return err
			}
			if !interactive {
				return nil
			}
			return s.repl(cmd.Context())
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&kind, "type", "bytes", "value type: bytes, ascii, utf16, int32, float, double")
	cmd.Flags().StringVar(&base, "base", "0", "start address when --no-auto is set, or clip start")
	cmd.Flags().Uint64Var(&length, "length", 0, "bytes to scan from --base, 0 with auto pages for everything")
	cmd.Flags().BoolVar(&noAuto, "no-auto", false, "read [base, base+length) instead of enumerating regions")
	cmd.Flags().UintVar(&align, "align", 1, "candidate alignment")
	cmd.Flags().IntVar(&show, "show", 20, "matches to print after each scan")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "refine the results from stdin")

	return cmd
}

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

// scanSession holds the matches carried between refinements.
type scanSession struct {
	e       *env
	scanner *search.Scanner
	opts    search.ScanOptions
	matches search.MatchSet
	show    int
}

func (s *scanSession) first(ctx context.Context, value string) error {
	s.opts.Compare = search.CompareExact
	s.opts.Expression = value

	var progress search.Progress
	matches, err := withProgress(ctx, s.e.errOut, &progress, func() (search.MatchSet, error) {
		return s.scanner.FirstScan(ctx, s.opts, &progress)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.matches = matches
	s.report(progress.Status())
	return nil
}

func (s *scanSession) next(ctx context.Context, mode search.CompareMode, value string) error {
	s.opts.Compare = mode
	if value != "" {
		s.opts.Expression = value
	}

	var progress search.Progress
	matches, err := withProgress(ctx, s.e.errOut, &progress, func() (search.MatchSet, error) {
		return s.scanner.NextScan(ctx, s.opts, s.matches, &progress)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.matches = matches
	s.report(progress.Status())
	return nil
}

func (s *scanSession) report(status string) {
	fmt.Fprintf(s.e.out, "%s: %d matches\n", status, len(s.matches))
	renderMatches(s.e.out, s.opts.Kind, s.matches, s.show)
}

// dump prints the memory surrounding match i.
func (s *scanSession) dump(i int) error {
	if i < 0 || i >= len(s.matches) {
		return fmt.Errorf("match index %d out of range [0, %d)", i, len(s.matches))
	}
	m := s.matches[i]

	proc, err := s.e.open(s.opts.PID)
	if err != nil {
		return err
	}
	defer proc.Close()

	// one line of context before the match when it is mapped
	start := m.Address &^ 0xf
	buf := make([]byte, 0x40)
	n := 0
	if start >= 0x10 {
		n, _ = proc.ReadMemory(start-0x10, buf)
		if n > 0 {
			start -= 0x10
		}
	}
	if n == 0 {
		if n, err = proc.ReadMemory(start, buf); n == 0 {
			return fmt.Errorf("read %s: %w", start.ToString(), err)
		}
	}

	regions := memory_map.EnumerateReadable(proc, 0, 0)
	fmt.Fprint(s.e.out, hexdump.HexdumpBasic(buf[:n], uint64(start), process.NewExactAOB(m.Value), regions))
	return nil
}

// handle runs one session command and reports whether the session is over.
func (s *scanSession) handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch fields[0] {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprint(s.e.out, sessionHelp)
		return false, nil
	case "first":
		return false, s.first(ctx, rest)
	case "next", "n":
		if len(fields) < 2 {
			return false, errors.New("next needs a compare mode")
		}
		mode, err := search.ParseCompareMode(fields[1])
		if err != nil {
			return false, err
		}
		value := strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
		return false, s.next(ctx, mode, value)
	case "list", "ls":
		limit := s.show
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return false, err
			}
			limit = v
		}
		renderMatches(s.e.out, s.opts.Kind, s.matches, limit)
		return false, nil
	case "dump", "d":
		if len(fields) < 2 {
			return false, errors.New("dump needs a match index")
		}
		i, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, err
		}
		return false, s.dump(i)
	}
	return false, errUnknownCommand
}

// repl reads session commands until quit or end of input. Each scan can be
// interrupted on its own without ending the session.
func (s *scanSession) repl(parent context.Context) error {
	in := bufio.NewScanner(s.e.in)
	for {
		fmt.Fprint(s.e.out, "> ")
		if !in.Scan() {
			return in.Err()
		}

		ctx, stop := signal.NotifyContext(parent, os.Interrupt)
		done, err := s.handle(ctx, in.Text())
		stop()

		if err != nil {
			fmt.Fprintln(s.e.out, "error:", err)
		}
		if done {
			return nil
		}
	}
}

// withProgress runs fn while printing its progress to w.
func withProgress(ctx context.Context, w io.Writer, progress *search.Progress, fn func() (search.MatchSet, error)) (search.MatchSet, error) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%-12s %5.1f%%", progress.Status(), progress.Fraction()*100)
			}
		}
	}()

	matches, err := fn()
	close(stop)
	<-done
	fmt.Fprintf(w, "\r%-12s %5.1f%%\n", progress.Status(), progress.Fraction()*100)
	return matches, err
}
