package process

// ProcessID represents a unique identifier for a process
type ProcessID uint32

// ThreadID represents a unique identifier for a thread
type ThreadID uint32

// ModuleRecord describes an image mapped into a process
type ModuleRecord struct {
	Name string
	Path string
	Base ProcessMemoryAddress
	Size ProcessMemorySize
}

// End returns the first address past the module image.
func (m ModuleRecord) End() ProcessMemoryAddress {
	return m.Base.Add(uint64(m.Size))
}

// Contains reports whether addr falls inside the module image.
func (m ModuleRecord) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.End()
}
