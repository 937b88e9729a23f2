package search

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"rekit/process"
)

// Pattern reduces the expression to the masked byte pattern a first scan
// looks for. Text and numeric kinds produce fully masked patterns.
func (o ScanOptions) Pattern() (process.AOB, error) {
	if o.Kind == KindBytes {
		return process.ParseAOB(o.Expression)
	}

	literal, err := encodeLiteral(o.Kind, o.Expression)
	if err != nil {
		return process.AOB{}, err
	}
	return process.NewExactAOB(literal), nil
}

func encodeLiteral(kind ValueKind, expr string) ([]byte, error) {
	switch kind {
	case KindASCII:
		if expr == "" {
			return nil, fmt.Errorf("%w: empty text", ErrInvalidValue)
		}
		return []byte(expr), nil

	case KindUTF16:
		if expr == "" {
			return nil, fmt.Errorf("%w: empty text", ErrInvalidValue)
		}
		return process.EncodeUTF16(expr)

	case KindInt32:
		v, err := strconv.ParseInt(strings.TrimSpace(expr), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(int32(v))), nil

	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(expr), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil

	case KindDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(expr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)), nil
	}

	return nil, fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, kind)
}

// numeric decodes a little-endian value of a numeric kind for ordering.
func numeric(kind ValueKind, b []byte) float64 {
	switch kind {
	case KindInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case KindFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case KindDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// FormatValue renders captured bytes according to kind.
func FormatValue(kind ValueKind, b []byte) string {
	switch {
	case kind.IsNumeric() && len(b) == kind.Width():
		if kind == KindInt32 {
			return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10)
		}
		return strconv.FormatFloat(numeric(kind, b), 'g', -1, 64)
	case kind == KindASCII:
		return strconv.Quote(string(b))
	case kind == KindUTF16:
		if s, err := process.DecodeUTF16(b); err == nil {
			return strconv.Quote(s)
		}
	}
	return process.NewExactAOB(b).String()
}
