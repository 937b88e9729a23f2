package snapshot

import (
	"sort"

	"rekit/process"
)

// TreeNode is one process and the processes it started.
type TreeNode struct {
	Record   ProcessRecord
	Children []*TreeNode
}

// isChild reports whether child was started by parent. Parent ids are not
// cleared when the parent exits, so a parent created after the child is a
// reused pid.
func isChild(parent, child ProcessRecord) bool {
	if child.ParentPID != parent.PID || child.PID == parent.PID {
		return false
	}
	if !parent.CreateTime.IsZero() && !child.CreateTime.IsZero() && child.CreateTime.Before(parent.CreateTime) {
		return false
	}
	return true
}

// Children returns the direct children of the process pid.
func Children(records []ProcessRecord, pid process.ProcessID) []ProcessRecord {
	parent, ok := findRecord(records, pid)
	if !ok {
		return nil
	}
	var out []ProcessRecord
	for _, r := range records {
		if isChild(parent, r) {
			out = append(out, r)
		}
	}
	return out
}

// Descendants returns every process below pid, breadth first.
func Descendants(records []ProcessRecord, pid process.ProcessID) []ProcessRecord {
	root, ok := BuildTree(records, pid)
	if !ok {
		return nil
	}
	var out []ProcessRecord
	queue := root.Children
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n.Record)
		queue = append(queue, n.Children...)
	}
	return out
}

// BuildTree returns the tree rooted at pid.
func BuildTree(records []ProcessRecord, pid process.ProcessID) (*TreeNode, bool) {
	rec, ok := findRecord(records, pid)
	if !ok {
		return nil, false
	}
	seen := map[process.ProcessID]bool{}
	return grow(records, rec, seen), true
}

// Forest returns a tree for every process whose parent is not running.
func Forest(records []ProcessRecord) []*TreeNode {
	seen := map[process.ProcessID]bool{}
	var roots []*TreeNode
	for _, r := range records {
		if hasParent(records, r) {
			continue
		}
		roots = append(roots, grow(records, r, seen))
	}
	return roots
}

func hasParent(records []ProcessRecord, child ProcessRecord) bool {
	for _, r := range records {
		if isChild(r, child) {
			return true
		}
	}
	return false
}

func grow(records []ProcessRecord, rec ProcessRecord, seen map[process.ProcessID]bool) *TreeNode {
	seen[rec.PID] = true
	node := &TreeNode{Record: rec}
	for _, r := range records {
		if !seen[r.PID] && isChild(rec, r) {
			node.Children = append(node.Children, grow(records, r, seen))
		}
	}
	sort.SliceStable(node.Children, func(i, j int) bool {
		return node.Children[i].Record.PID < node.Children[j].Record.PID
	})
	return node
}

func findRecord(records []ProcessRecord, pid process.ProcessID) (ProcessRecord, bool) {
	for _, r := range records {
		if r.PID == pid {
			return r, true
		}
	}
	return ProcessRecord{}, false
}

// Walk visits n and its descendants depth first with their depth.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	var visit func(*TreeNode, int)
	visit = func(node *TreeNode, depth int) {
		fn(node, depth)
		for _, c := range node.Children {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
}
