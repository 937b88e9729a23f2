package snapshot

import (
	"errors"
	"fmt"
	"unsafe"
)

const (
	DefaultInitialBufferSize = 1 << 20
	DefaultMaxBufferSize     = 1 << 30
)

// Querier fills buf with the system process information. It returns the
// number of bytes written, or ErrInfoLengthMismatch when buf is too small.
type Querier interface {
	QuerySystemInformation(buf []byte) (int, error)
}

// Query calls q with a buffer of initialSize bytes, doubling it after every
// length mismatch until the data fits or the buffer would exceed maxSize.
func Query(q Querier, initialSize, maxSize int) ([]byte, error) {
	if initialSize <= 0 {
		initialSize = DefaultInitialBufferSize
	}
	if maxSize < initialSize {
		maxSize = initialSize
	}

	size := initialSize
	for {
		buf := make([]byte, size)
		n, err := q.QuerySystemInformation(buf)
		if err == nil {
			if n <= 0 || n > len(buf) {
				n = len(buf)
			}
			return buf[:n], nil
		}
		if !errors.Is(err, ErrInfoLengthMismatch) {
			return nil, fmt.Errorf("query system information: %w", err)
		}
		if size > maxSize/2 {
			return nil, fmt.Errorf("%w: %d bytes", ErrBufferTooLarge, size*2)
		}
		size *= 2
	}
}

// QueryProcesses runs Query and decodes the result.
func QueryProcesses(q Querier, initialSize, maxSize int) ([]ProcessRecord, error) {
	buf, err := Query(q, initialSize, maxSize)
	if err != nil {
		return nil, err
	}
	return Decode(buf, uint64(uintptr(unsafe.Pointer(&buf[0]))))
}
