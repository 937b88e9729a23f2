package main

import (
	"fmt"
	"io"
	"strings"

	"rekit/snapshot"

	"github.com/spf13/cobra"
)

func newPSCommand(e *env) (cmd *cobra.Command) {
	var (
		name, pid, path string
		keyword         string
		sortBy          string
		threads         bool
		tree            bool
	)

	cmd = &cobra.Command{
		Use:   "ps",
		Short: "list running processes",
		Example: `  rekit ps --name chrome --sort -workingset
  rekit ps --keyword svchost --threads`,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := snapshot.ParseSortSpecs(sortBy)
			if err != nil {
				return err
			}

			svc := e.newService()
			if err := svc.Refresh(); err != nil {
				return err
			}

			records, err := svc.Filter(name, pid, path)
			if err != nil {
				return err
			}
			if keyword != "" {
				records = snapshot.MatchKeyword(records, keyword)
			}
			snapshot.Sort(records, specs...)

			if tree {
				renderTree(e.out, svc.GetSnapshot(), records, name != "" || pid != "" || path != "" || keyword != "")
				return nil
			}

			renderProcesses(e.out, records)
			if threads {
				for _, r := range records {
					fmt.Fprintf(e.out, "\n%s (%d)\n", r.Name, r.PID)
					renderThreads(e.out, r)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "case-insensitive substring of the process name")
	cmd.Flags().StringVar(&pid, "pid", "", "exact process id")
	cmd.Flags().StringVar(&path, "path", "", "case-insensitive substring of the image path")
	cmd.Flags().StringVar(&keyword, "keyword", "", "match name, pid or path")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "comma separated columns, prefix with - for descending")
	cmd.Flags().BoolVar(&threads, "threads", false, "also list the threads of each process")
	cmd.Flags().BoolVar(&tree, "tree", false, "show the process hierarchy below each match")

	return cmd
}

// renderTree prints the hierarchy below each match, or every root when no
// filter was given.
func renderTree(w io.Writer, all, matches []snapshot.ProcessRecord, filtered bool) {
	var roots []*snapshot.TreeNode
	if filtered {
		for _, r := range matches {
			if node, ok := snapshot.BuildTree(all, r.PID); ok {
				roots = append(roots, node)
			}
		}
	} else {
		roots = snapshot.Forest(all)
	}

	for _, root := range roots {
		root.Walk(func(n *snapshot.TreeNode, depth int) {
			fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("  ", depth), n.Record.Name, n.Record.PID)
		})
	}
}
