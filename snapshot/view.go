package snapshot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column identifies a sortable field of the process table
type Column int

const (
	ColumnName Column = iota
	ColumnPID
	ColumnThreads
	ColumnHandles
	ColumnPath
	ColumnWorkingSet
)

var columnNames = map[Column]string{
	ColumnName:       "name",
	ColumnPID:        "pid",
	ColumnThreads:    "threads",
	ColumnHandles:    "handles",
	ColumnPath:       "path",
	ColumnWorkingSet: "workingset",
}

func (c Column) String() string {
	if s, ok := columnNames[c]; ok {
		return s
	}
	return fmt.Sprintf("column(%d)", int(c))
}

// SortSpec orders by one column.
type SortSpec struct {
	Column     Column
	Descending bool
}

// ParseSortSpecs parses a comma separated list such as "name,-pid"; a
// leading '-' sorts that column descending.
func ParseSortSpecs(s string) ([]SortSpec, error) {
	var specs []SortSpec
	for _, field := range strings.Split(s, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		spec := SortSpec{}
		if strings.HasPrefix(field, "-") {
			spec.Descending = true
			field = field[1:]
		}
		found := false
		for c, name := range columnNames {
			if name == field {
				spec.Column, found = c, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown sort column %q", field)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func compareColumn(a, b ProcessRecord, c Column) int {
	switch c {
	case ColumnName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case ColumnPID:
		return cmpOrdered(a.PID, b.PID)
	case ColumnThreads:
		return cmpOrdered(a.ThreadCount, b.ThreadCount)
	case ColumnHandles:
		return cmpOrdered(a.HandleCount, b.HandleCount)
	case ColumnPath:
		return strings.Compare(strings.ToLower(a.ImagePath), strings.ToLower(b.ImagePath))
	case ColumnWorkingSet:
		return cmpOrdered(a.WorkingSetSize, b.WorkingSetSize)
	}
	return 0
}

func cmpOrdered[T ~uint32 | ~uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sort orders records in place by the specs, earlier specs first. Ties on
// every spec keep their relative order.
func Sort(records []ProcessRecord, specs ...SortSpec) {
	if len(specs) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, spec := range specs {
			c := compareColumn(records[i], records[j], spec.Column)
			if c == 0 {
				continue
			}
			if spec.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// MatchKeyword keeps the records whose name or path contains keyword, case
// insensitively, or whose pid equals keyword when it is a number.
func MatchKeyword(records []ProcessRecord, keyword string) []ProcessRecord {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return records
	}

	pid, pidErr := strconv.ParseUint(keyword, 10, 32)

	var out []ProcessRecord
	for _, rec := range records {
		switch {
		case pidErr == nil && uint64(rec.PID) == pid,
			strings.Contains(strings.ToLower(rec.Name), keyword),
			strings.Contains(strings.ToLower(rec.ImagePath), keyword):
			out = append(out, rec)
		}
	}
	return out
}
