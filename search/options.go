package search

import (
	"fmt"
	"strings"

	"rekit/process"
)

// ValueKind selects how the scan expression is interpreted
type ValueKind int

const (
	KindBytes  ValueKind = iota // hex pattern with nibble wildcards
	KindASCII                   // literal text, one byte per character
	KindUTF16                   // literal text, little-endian UTF-16
	KindInt32                   // little-endian signed 32-bit integer
	KindFloat                   // IEEE-754 single precision
	KindDouble                  // IEEE-754 double precision
)

var kindNames = map[ValueKind]string{
	KindBytes:  "bytes",
	KindASCII:  "ascii",
	KindUTF16:  "utf16",
	KindInt32:  "int32",
	KindFloat:  "float",
	KindDouble: "double",
}

func (k ValueKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumeric reports whether values of the kind have a fixed width and an order.
func (k ValueKind) IsNumeric() bool {
	return k == KindInt32 || k == KindFloat || k == KindDouble
}

// Width is the byte width of numeric kinds, zero otherwise.
func (k ValueKind) Width() int {
	switch k {
	case KindInt32, KindFloat:
		return 4
	case KindDouble:
		return 8
	}
	return 0
}

func ParseValueKind(s string) (ValueKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	switch s {
	case "aob", "hex":
		return KindBytes, nil
	case "text", "string":
		return KindASCII, nil
	case "wide", "unicode":
		return KindUTF16, nil
	case "int", "i32":
		return KindInt32, nil
	case "f32", "float32":
		return KindFloat, nil
	case "f64", "float64":
		return KindDouble, nil
	}
	return KindBytes, fmt.Errorf("unknown value kind %q", s)
}

// CompareMode selects how a next scan decides which candidates survive
type CompareMode int

const (
	CompareExact CompareMode = iota
	CompareIncreased
	CompareDecreased
	CompareChanged
	CompareUnchanged
)

var compareNames = map[CompareMode]string{
	CompareExact:     "exact",
	CompareIncreased: "increased",
	CompareDecreased: "decreased",
	CompareChanged:   "changed",
	CompareUnchanged: "unchanged",
}

func (m CompareMode) String() string {
	if s, ok := compareNames[m]; ok {
		return s
	}
	return fmt.Sprintf("compare(%d)", int(m))
}

// Relational reports whether the mode compares against the previous value.
func (m CompareMode) Relational() bool {
	return m != CompareExact
}

func ParseCompareMode(s string) (CompareMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range compareNames {
		if name == s {
			return m, nil
		}
	}
	switch s {
	case "eq", "=":
		return CompareExact, nil
	case "inc", "+":
		return CompareIncreased, nil
	case "dec", "-":
		return CompareDecreased, nil
	case "ne", "!=":
		return CompareChanged, nil
	case "same":
		return CompareUnchanged, nil
	}
	return CompareExact, fmt.Errorf("unknown compare mode %q", s)
}

// ScanOptions describes one scan request
type ScanOptions struct {
	PID        process.ProcessID
	Base       process.ProcessMemoryAddress
	Length     process.ProcessMemorySize // zero with AutoPages means the whole address space
	AutoPages  bool                      // enumerate readable regions instead of reading [Base, Base+Length)
	Alignment  uint                      // candidate stride measured from each region base; 0 and 1 mean every byte
	Kind       ValueKind
	Compare    CompareMode
	Expression string
}

func (o ScanOptions) stride() uint64 {
	if o.Alignment <= 1 {
		return 1
	}
	return uint64(o.Alignment)
}

func (o ScanOptions) end() process.ProcessMemoryAddress {
	return o.Base.Add(uint64(o.Length))
}
