package process_blob

import (
	"rekit/process"
	"rekit/process/memory_map"
)

// ProcessBlob is one contiguous span of captured memory with the protection
// it had in the target.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	protect     uint32
	state       uint32
}

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		protect:     memory_map.PageReadWrite,
		state:       memory_map.MemCommit,
	}
}

// WithProtect sets the page protection reported for the blob.
func (p *ProcessBlob) WithProtect(protect uint32) *ProcessBlob {
	p.protect = protect
	return p
}

// WithState sets the page state reported for the blob.
func (p *ProcessBlob) WithState(state uint32) *ProcessBlob {
	p.state = state
	return p
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) End() process.ProcessMemoryAddress {
	return p.baseaddress.Add(uint64(len(p.data)))
}

func (p *ProcessBlob) contains(addr process.ProcessMemoryAddress) bool {
	return addr >= p.baseaddress && addr < p.End()
}

func (p *ProcessBlob) info() memory_map.RegionInfo {
	return memory_map.RegionInfo{
		Base:    uint64(p.baseaddress),
		Size:    uint64(len(p.data)),
		State:   p.state,
		Protect: p.protect,
	}
}

func (p *ProcessBlob) readable() bool {
	if p.state != memory_map.MemCommit || p.protect&memory_map.PageGuard != 0 {
		return false
	}
	return p.protect&^memory_map.PageGuard != memory_map.PageNoAccess
}

// Poke overwrites bytes at addr, as if the target had written them.
func (p *ProcessBlob) Poke(addr process.ProcessMemoryAddress, data []byte) bool {
	if !p.contains(addr) || uint64(addr-p.baseaddress)+uint64(len(data)) > uint64(len(p.data)) {
		return false
	}
	copy(p.data[addr-p.baseaddress:], data)
	return true
}
