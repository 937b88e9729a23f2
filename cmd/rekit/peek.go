package main

import (
	"fmt"
	"strconv"
	"strings"

	"rekit/pod"
	"rekit/process"

	"github.com/spf13/cobra"
)

// peekFunc reads count values at addr and renders them, reporting the
// width of one value.
type peekFunc func(r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]string, process.ProcessMemorySize, error)

var peekTypes = map[string]peekFunc{
	"int8":    peekAs[int8](formatInt[int8]),
	"uint8":   peekAs[uint8](formatUint[uint8]),
	"int16":   peekAs[int16](formatInt[int16]),
	"uint16":  peekAs[uint16](formatUint[uint16]),
	"int32":   peekAs[int32](formatInt[int32]),
	"uint32":  peekAs[uint32](formatUint[uint32]),
	"int64":   peekAs[int64](formatInt[int64]),
	"uint64":  peekAs[uint64](formatUint[uint64]),
	"float":   peekAs[float32](func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }),
	"double":  peekAs[float64](func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }),
	"pointer": peekAs[uint64](func(v uint64) string { return process.ProcessMemoryAddress(v).ToString() }),
}

func formatInt[T int8 | int16 | int32 | int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func formatUint[T uint8 | uint16 | uint32 | uint64](v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

func peekAs[T any](format func(T) string) peekFunc {
	return func(r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]string, process.ProcessMemorySize, error) {
		values, err := pod.ReadSliceT[T](r, addr, count)
		if err != nil {
			return nil, 0, err
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = format(v)
		}
		return out, pod.SizeOf[T](), nil
	}
}

func parseOffsets(s string) ([]process.ProcessMemorySize, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []process.ProcessMemorySize
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", field, err)
		}
		out = append(out, process.ProcessMemorySize(v))
	}
	return out, nil
}

func newPeekCommand(e *env) (cmd *cobra.Command) {
	var (
		target targetFlags
		addr   string
		path   string
		kind   string
		count  int
	)

	cmd = &cobra.Command{
		Use:   "peek",
		Short: "read typed values from a process",
		Example: `  rekit peek --name game.exe --addr 0x7FF6A0001000 --type int32 --count 4
  rekit peek --pid 4312 --addr 0x7FF6A0001000 --path 0x10,0x8,0x20 --type float`,
		RunE: func(cmd *cobra.Command, args []string) error {
			read, ok := peekTypes[kind]
			if !ok {
				return fmt.Errorf("unknown type %q", kind)
			}
			base, err := parseAddress(addr)
			if err != nil {
				return err
			}
			offsets, err := parseOffsets(path)
			if err != nil {
				return err
			}
			pid, err := target.resolve(e)
			if err != nil {
				return err
			}

			proc, err := e.open(pid)
			if err != nil {
				return err
			}
			defer proc.Close()

			at, err := pod.ResolvePath(proc, base, offsets...)
			if err != nil {
				return err
			}
			values, size, err := read(proc, at, count)
			if err != nil {
				return err
			}

			table := newTable(e.out, "Address", "Value")
			for i, v := range values {
				table.Append([]string{at.Add(uint64(i) * uint64(size)).ToString(), v})
			}
			table.Render()
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "address to read, or the base of --path")
	cmd.Flags().StringVar(&path, "path", "", "comma separated pointer path offsets")
	cmd.Flags().StringVar(&kind, "type", "int32", "int8..int64, uint8..uint64, float, double or pointer")
	cmd.Flags().IntVar(&count, "count", 1, "consecutive values to read")

	return cmd
}
