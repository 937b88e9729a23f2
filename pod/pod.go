// Package pod reads plain-old-data values out of target memory using their
// in-memory layout.
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"rekit/process"
)

var (
	ErrNotPOD   = errors.New("type contains pointers")
	ErrZeroSize = errors.New("type has zero size")
	ErrNullLink = errors.New("null pointer in path")
)

// PointerSize is the width of a pointer in the targets rekit supports.
const PointerSize = 8

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// ReadT reads one T at addr.
func ReadT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	var zero T
	values, err := ReadSliceT[T](r, addr, 1)
	if err != nil {
		return zero, err
	}
	return values[0], nil
}

// ReadSliceT reads count consecutive values of T starting at addr with a
// single read.
func ReadSliceT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, fmt.Errorf("ReadSliceT: negative count %d", count)
	}
	if hasPointers[T]() {
		return nil, fmt.Errorf("ReadSliceT: %w", ErrNotPOD)
	}
	size := int(SizeOf[T]())
	if size == 0 {
		return nil, fmt.Errorf("ReadSliceT: %w", ErrZeroSize)
	}

	data := make([]byte, size*count)
	n, err := r.ReadMemory(addr, data)
	if err != nil {
		return nil, fmt.Errorf("ReadSliceT: %w", err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("ReadSliceT: short read at %s: %w", addr.ToString(), process.ErrAddressNotMapped)
	}

	out := make([]T, count)
	if count > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(data)), data)
	}
	return out, nil
}

// WriteT serializes v using its in-memory layout.
func WriteT[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

// hasPointers reports whether T (recursively) contains any pointer-like fields.
func hasPointers[T any]() bool {
	return typeHasPointers(reflect.TypeOf((*T)(nil)).Elem())
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
