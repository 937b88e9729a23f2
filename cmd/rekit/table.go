package main

import (
	"fmt"
	"io"
	"strconv"

	"rekit/process"
	"rekit/search"
	"rekit/snapshot"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func renderProcesses(w io.Writer, records []snapshot.ProcessRecord) {
	table := newTable(w, "Name", "PID", "PPID", "Threads", "Handles", "Working Set", "Path")
	for _, r := range records {
		table.Append([]string{
			r.Name,
			strconv.FormatUint(uint64(r.PID), 10),
			strconv.FormatUint(uint64(r.ParentPID), 10),
			strconv.FormatUint(uint64(r.ThreadCount), 10),
			strconv.FormatUint(uint64(r.HandleCount), 10),
			formatBytes(r.WorkingSetSize),
			r.ImagePath,
		})
	}
	table.Render()
}

func renderThreads(w io.Writer, rec snapshot.ProcessRecord) {
	table := newTable(w, "TID", "Start", "Priority", "State", "Wait Reason", "Switches")
	for _, t := range rec.Threads {
		table.Append([]string{
			strconv.FormatUint(uint64(t.TID), 10),
			t.StartAddress.ToString(),
			strconv.Itoa(int(t.Priority)),
			t.State.String(),
			strconv.FormatUint(uint64(t.WaitReason), 10),
			strconv.FormatUint(uint64(t.ContextSwitches), 10),
		})
	}
	table.Render()
}

func renderModules(w io.Writer, modules []process.ModuleRecord) {
	table := newTable(w, "Name", "Base", "Size", "Path")
	for _, m := range modules {
		table.Append([]string{m.Name, m.Base.ToString(), formatBytes(uint64(m.Size)), m.Path})
	}
	table.Render()
}

func renderMatches(w io.Writer, kind search.ValueKind, matches search.MatchSet, limit int) {
	table := newTable(w, "#", "Address", "Value")
	for i, m := range matches {
		if limit > 0 && i >= limit {
			break
		}
		table.Append([]string{strconv.Itoa(i), m.Address.ToString(), search.FormatValue(kind, m.Value)})
	}
	table.Render()
	if limit > 0 && len(matches) > limit {
		fmt.Fprintf(w, "... %d more\n", len(matches)-limit)
	}
}
