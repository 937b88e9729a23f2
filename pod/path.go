package pod

import (
	"fmt"

	"rekit/process"
)

// ResolvePath follows a pointer path. Starting at base, every offset but the
// last is added and the pointer stored there is loaded; the last offset is
// added to the final pointer. With no offsets the result is base.
func ResolvePath(r process.MemoryReader, base process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	cur := base
	for i := 0; i < len(offsets)-1; i++ {
		slot := cur.Add(uint64(offsets[i]))
		ptr, err := ReadT[uint64](r, slot)
		if err != nil {
			return 0, fmt.Errorf("link %d at %s: %w", i, slot.ToString(), err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("link %d at %s: %w", i, slot.ToString(), ErrNullLink)
		}
		cur = process.ProcessMemoryAddress(ptr)
	}
	if len(offsets) > 0 {
		cur = cur.Add(uint64(offsets[len(offsets)-1]))
	}
	return cur, nil
}

// ReadPath reads a T at the end of a pointer path.
func ReadPath[T any](r process.MemoryReader, base process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (T, error) {
	var zero T
	addr, err := ResolvePath(r, base, offsets...)
	if err != nil {
		return zero, err
	}
	return ReadT[T](r, addr)
}
