package memory_map

import (
	"errors"
	"fmt"
	"sort"
)

// Page state values as reported by the region query.
const (
	MemCommit  uint32 = 0x1000
	MemReserve uint32 = 0x2000
	MemFree    uint32 = 0x10000
)

// Page protection values as reported by the region query.
const (
	PageNoAccess         uint32 = 0x01
	PageReadOnly         uint32 = 0x02
	PageReadWrite        uint32 = 0x04
	PageWriteCopy        uint32 = 0x08
	PageExecute          uint32 = 0x10
	PageExecuteRead      uint32 = 0x20
	PageExecuteReadWrite uint32 = 0x40
	PageExecuteWriteCopy uint32 = 0x80
	PageGuard            uint32 = 0x100
)

// ErrQueryFailed is returned when a region query cannot describe an address.
var ErrQueryFailed = errors.New("region query failed")

// RegionInfo is the description of one span of the target address space
type RegionInfo struct {
	Base    uint64 // first address of the span
	Size    uint64 // bytes in the span
	State   uint32 // MemCommit, MemReserve or MemFree
	Protect uint32 // Page* flags
}

// End returns the first address past the span, saturating on overflow.
func (ri RegionInfo) End() uint64 {
	end := ri.Base + ri.Size
	if end < ri.Base {
		return ^uint64(0)
	}
	return end
}

// IsReadable reports whether the span is committed and scannable.
func (ri RegionInfo) IsReadable() bool {
	if ri.State != MemCommit || ri.Protect&PageGuard != 0 {
		return false
	}
	switch ri.Protect &^ PageGuard {
	case PageReadOnly, PageReadWrite, PageExecuteRead, PageExecuteReadWrite:
		return true
	}
	return false
}

// Perms renders the protection in the familiar "rwx" form.
func (ri RegionInfo) Perms() string {
	p := []byte("---")
	switch ri.Protect &^ PageGuard {
	case PageReadOnly:
		p[0] = 'r'
	case PageReadWrite, PageWriteCopy:
		p[0], p[1] = 'r', 'w'
	case PageExecute:
		p[2] = 'x'
	case PageExecuteRead:
		p[0], p[2] = 'r', 'x'
	case PageExecuteReadWrite, PageExecuteWriteCopy:
		p[0], p[1], p[2] = 'r', 'w', 'x'
	}
	if ri.Protect&PageGuard != 0 {
		return string(p) + "g"
	}
	return string(p)
}

func (ri RegionInfo) String() string {
	return fmt.Sprintf("Base: %x, Size: %d, State: %#x, Perms: %s", ri.Base, ri.Size, ri.State, ri.Perms())
}

// RegionQuerier describes the span of the target address space containing addr.
type RegionQuerier interface {
	QueryRegion(addr uint64) (RegionInfo, error)
}

// Region is a span of readable memory selected for scanning
type Region struct {
	Address uint64 // The starting address of the memory region
	Size    uint64 // The size of the memory region in bytes
}

// End returns the first address past the region, saturating on overflow.
func (r Region) End() uint64 {
	end := r.Address + r.Size
	if end < r.Address {
		return ^uint64(0)
	}
	return end
}

// String returns a string representation of the region
func (r Region) String() string {
	return fmt.Sprintf("Address: %x, Size: %d", r.Address, r.Size)
}

// TotalSize sums the sizes of the given regions.
func TotalSize(regions []Region) uint64 {
	var total uint64
	for _, r := range regions {
		total += r.Size
	}
	return total
}

// IsValidAddress checks if an address is within one of the regions
func IsValidAddress(addr uint64, regions []Region) bool {
	return GetRegionForAddress(addr, regions) != nil
}

// GetRegionForAddress returns the region containing addr. The regions must
// be sorted by address and must not overlap.
func GetRegionForAddress(addr uint64, regions []Region) *Region {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End() > addr
	})
	if i < len(regions) && regions[i].Address <= addr {
		return &regions[i]
	}

	return nil
}
