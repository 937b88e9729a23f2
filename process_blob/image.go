package process_blob

import (
	"fmt"
	"sort"
	"sync"

	"rekit/process"
	"rekit/process/memory_map"
)

// Image is an in-memory process: a set of non-overlapping blobs answering
// reads and region queries the way a live target does. Addresses not covered
// by a blob are reported as free.
type Image struct {
	pid process.ProcessID

	mu     sync.Mutex
	blobs  []*ProcessBlob
	closed bool
	opens  int

	// ReadFault, when set, is consulted before each read; returning true
	// makes the read fail as if the page had been unmapped.
	ReadFault func(addr process.ProcessMemoryAddress, size int) bool
}

var _ process.Process = (*Image)(nil)

func NewImage(pid process.ProcessID, blobs ...*ProcessBlob) *Image {
	img := &Image{pid: pid}
	for _, b := range blobs {
		img.AddBlob(b)
	}
	return img
}

// AddBlob inserts b keeping the blobs ordered by base address.
func (img *Image) AddBlob(b *ProcessBlob) {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.blobs = append(img.blobs, b)
	sort.Slice(img.blobs, func(i, j int) bool {
		return img.blobs[i].baseaddress < img.blobs[j].baseaddress
	})
}

// Blob returns the blob containing addr.
func (img *Image) Blob(addr process.ProcessMemoryAddress) *ProcessBlob {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.find(addr)
}

func (img *Image) find(addr process.ProcessMemoryAddress) *ProcessBlob {
	i := sort.Search(len(img.blobs), func(i int) bool {
		return img.blobs[i].End() > addr
	})
	if i < len(img.blobs) && img.blobs[i].contains(addr) {
		return img.blobs[i]
	}
	return nil
}

func (img *Image) GetPID() process.ProcessID {
	return img.pid
}

func (img *Image) Close() error {
	img.mu.Lock()
	defer img.mu.Unlock()
	img.closed = true
	return nil
}

// Opens reports how many times the image was handed out by an Opener.
func (img *Image) Opens() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.opens
}

// Closed reports whether Close has been called.
func (img *Image) Closed() bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.closed
}

// ReadMemory copies memory at addr into buf. A read must lie within a single
// readable blob; anything else fails with the bytes that could be copied.
func (img *Image) ReadMemory(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if fault := img.ReadFault; fault != nil && fault(addr, len(buf)) {
		return 0, fmt.Errorf("read %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return 0, process.ErrProcessNotOpen
	}

	b := img.find(addr)
	if b == nil || !b.readable() {
		return 0, fmt.Errorf("read %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	n := copy(buf, b.data[addr-b.baseaddress:])
	if n < len(buf) {
		return n, fmt.Errorf("partial read at %s: %d of %d bytes", addr.ToString(), n, len(buf))
	}
	return n, nil
}

// QueryRegion describes the blob or the free gap containing addr.
func (img *Image) QueryRegion(addr uint64) (memory_map.RegionInfo, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return memory_map.RegionInfo{}, process.ErrProcessNotOpen
	}

	var gapStart uint64
	for _, b := range img.blobs {
		base := uint64(b.baseaddress)
		if addr < base {
			return memory_map.RegionInfo{
				Base:    gapStart,
				Size:    base - gapStart,
				State:   memory_map.MemFree,
				Protect: memory_map.PageNoAccess,
			}, nil
		}
		if b.contains(process.ProcessMemoryAddress(addr)) {
			return b.info(), nil
		}
		gapStart = uint64(b.End())
	}

	return memory_map.RegionInfo{}, fmt.Errorf("query %#x: %w", addr, memory_map.ErrQueryFailed)
}

// Opener returns an open function serving the given images by pid.
func Opener(images ...*Image) process.OpenFunc {
	return func(pid process.ProcessID) (process.Process, error) {
		for _, img := range images {
			if img.pid == pid {
				img.mu.Lock()
				img.closed = false
				img.opens++
				img.mu.Unlock()
				return img, nil
			}
		}
		return nil, fmt.Errorf("open pid %d: no such process", pid)
	}
}
