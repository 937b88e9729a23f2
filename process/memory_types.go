package process

import (
	"fmt"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Add returns pma+n, saturating at the top of the address space.
func (pma ProcessMemoryAddress) Add(n uint64) ProcessMemoryAddress {
	sum := uint64(pma) + n
	if sum < uint64(pma) {
		return ProcessMemoryAddress(^uint64(0))
	}
	return ProcessMemoryAddress(sum)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint64

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint64(pms))
}

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    []byte // 0xFF means exact match, 0x00 means wildcard, nibble masks are allowed
}

// IsValid checks if the AOB pattern is valid
func (aob AOB) IsValid() bool {
	return len(aob.Pattern) > 0 && len(aob.Pattern) == len(aob.Mask)
}

// Len is the number of bytes the pattern spans.
func (aob AOB) Len() int {
	return len(aob.Pattern)
}

// MatchAt reports whether the pattern matches data starting at offset.
func (aob AOB) MatchAt(data []byte, offset int) bool {
	if offset < 0 || offset+len(aob.Pattern) > len(data) {
		return false
	}
	for j, p := range aob.Pattern {
		m := aob.Mask[j]
		if data[offset+j]&m != p&m {
			return false
		}
	}
	return true
}

// String renders the pattern back into the hex form accepted by ParseAOB.
func (aob AOB) String() string {
	var sb strings.Builder
	for i, p := range aob.Pattern {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(nibble(p>>4, aob.Mask[i]&0xF0 != 0))
		sb.WriteByte(nibble(p&0x0F, aob.Mask[i]&0x0F != 0))
	}
	return sb.String()
}

func nibble(v byte, known bool) byte {
	if !known {
		return '?'
	}
	return "0123456789ABCDEF"[v&0x0F]
}

// NewAOB pairs a pattern with its mask.
func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("pattern and mask must be of the same length")
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// NewExactAOB builds a pattern where every byte must match.
func NewExactAOB(pattern []byte) AOB {
	mask := make([]byte, len(pattern))
	for i := range mask {
		mask[i] = 0xFF
	}
	return AOB{Pattern: append([]byte(nil), pattern...), Mask: mask}
}

// ParseAOB parses a hex expression such as "48 8B ?? 5?" into a masked
// pattern. Whitespace is ignored and '?' is a wildcard for one nibble.
func ParseAOB(expr string) (AOB, error) {
	digits := make([]byte, 0, len(expr))
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; c {
		case ' ', '\t', '\r', '\n':
		default:
			digits = append(digits, c)
		}
	}

	if len(digits) == 0 {
		return AOB{}, fmt.Errorf("%w: empty expression", ErrInvalidPattern)
	}
	if len(digits)%2 != 0 {
		return AOB{}, fmt.Errorf("%w: odd number of nibbles (%d)", ErrInvalidPattern, len(digits))
	}

	aob := AOB{
		Pattern: make([]byte, len(digits)/2),
		Mask:    make([]byte, len(digits)/2),
	}
	for i := 0; i < len(digits); i += 2 {
		hi, hiMask, err := parseNibble(digits[i])
		if err != nil {
			return AOB{}, err
		}
		lo, loMask, err := parseNibble(digits[i+1])
		if err != nil {
			return AOB{}, err
		}
		aob.Pattern[i/2] = hi<<4 | lo
		aob.Mask[i/2] = hiMask<<4 | loMask
	}

	return aob, nil
}

func parseNibble(c byte) (value byte, mask byte, err error) {
	switch {
	case c == '?':
		return 0, 0, nil
	case c >= '0' && c <= '9':
		return c - '0', 0x0F, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, 0x0F, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, 0x0F, nil
	}
	return 0, 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidPattern, c)
}
