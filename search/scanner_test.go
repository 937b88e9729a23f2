package search

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"rekit/process"
	"rekit/process/memory_map"
	"rekit/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPID process.ProcessID = 4242

func int32Bytes(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

func newTestScanner(img *process_blob.Image, options ...Option) *Scanner {
	return NewScanner(process_blob.Opener(img), options...)
}

func autoOptions(kind ValueKind, expr string) ScanOptions {
	return ScanOptions{PID: testPID, AutoPages: true, Alignment: 1, Kind: kind, Expression: expr}
}

func TestFirstScanFindsInt32(t *testing.T) {
	data := make([]byte, 1024)
	copy(data[100:], int32Bytes(1234))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x10000, data))

	var progress Progress
	matches, err := newTestScanner(img).FirstScan(context.Background(), autoOptions(KindInt32, "1234"), &progress)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x10000+100), matches[0].Address)
	assert.Equal(t, int32Bytes(1234), matches[0].Value)
	assert.Equal(t, 1.0, progress.Fraction())
	assert.Equal(t, StatusDone, progress.Status())
	assert.True(t, img.Closed())
}

func TestFirstScanAlignment(t *testing.T) {
	data := make([]byte, 256)
	copy(data[8:], int32Bytes(7))
	copy(data[21:], int32Bytes(7))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x10002, data))

	opts := autoOptions(KindInt32, "7")
	opts.Alignment = 4
	matches, err := newTestScanner(img, WithChunkSize(16)).FirstScan(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x10002 + 8}, matches.Addresses())

	opts.Alignment = 1
	matches, err = newTestScanner(img, WithChunkSize(16)).FirstScan(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x10002 + 8, 0x10002 + 21}, matches.Addresses())
}

func TestFirstScanAcrossChunkBoundary(t *testing.T) {
	data := make([]byte, 64)
	copy(data[14:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	copy(data[30:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x2000, data))

	matches, err := newTestScanner(img, WithChunkSize(16)).FirstScan(context.Background(), autoOptions(KindBytes, "DE AD BE EF"), nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x2000 + 14, 0x2000 + 30}, matches.Addresses())
}

// bruteForce lists every anchor in the readable blobs where aob matches.
func bruteForce(aob process.AOB, blobs ...*process_blob.ProcessBlob) []process.ProcessMemoryAddress {
	var out []process.ProcessMemoryAddress
	for _, b := range blobs {
		for i := 0; i+aob.Len() <= len(b.Data()); i++ {
			if aob.MatchAt(b.Data(), i) {
				out = append(out, b.Base()+process.ProcessMemoryAddress(i))
			}
		}
	}
	return out
}

func TestFirstScanMatchesEveryMaskedAnchor(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	random := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			// small alphabet so wildcard patterns hit often
			b[i] = byte(rng.Intn(4)) * 0x11
		}
		return b
	}

	a := process_blob.NewProcessBlob(0x1000, random(3000))
	guarded := process_blob.NewProcessBlob(0x3000, random(512)).WithProtect(memory_map.PageReadWrite | memory_map.PageGuard)
	b := process_blob.NewProcessBlob(0x8000, random(777)).WithProtect(memory_map.PageExecuteRead)
	img := process_blob.NewImage(testPID, a, guarded, b)

	for _, expr := range []string{"11 ?? 2?", "?3 00", "33", "00 11 22 ?? ?? 33"} {
		aob, err := process.ParseAOB(expr)
		require.NoError(t, err)

		matches, err := newTestScanner(img, WithChunkSize(100)).FirstScan(context.Background(), autoOptions(KindBytes, expr), nil)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(aob, a, b), matches.Addresses(), "pattern %q", expr)

		for _, m := range matches {
			assert.True(t, aob.MatchAt(m.Value, 0))
		}
	}
}

func TestFirstScanClipsToRange(t *testing.T) {
	data := make([]byte, 0x100)
	copy(data[0x10:], []byte("needle"))
	copy(data[0x80:], []byte("needle"))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x4000, data))

	opts := autoOptions(KindASCII, "needle")
	opts.Base = 0x4040
	opts.Length = 0x80
	matches, err := newTestScanner(img).FirstScan(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x4080}, matches.Addresses())
}

func TestFirstScanManualRange(t *testing.T) {
	data := make([]byte, 0x100)
	copy(data[0x20:], int32Bytes(-5))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x4000, data))

	opts := ScanOptions{PID: testPID, Base: 0x4000, Length: 0x100, Kind: KindInt32, Expression: "-5"}
	matches, err := newTestScanner(img).FirstScan(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x4020}, matches.Addresses())
}

func TestFirstScanUsesPartialReads(t *testing.T) {
	data := make([]byte, 1024)
	copy(data[100:], int32Bytes(1234))
	copy(data[1020:], int32Bytes(1234))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x10000, data))

	// the range runs past the end of the mapping
	opts := ScanOptions{PID: testPID, Base: 0x10000, Length: 4096, Alignment: 1, Kind: KindInt32, Expression: "1234"}
	for _, chunk := range []int{DefaultChunkSize, 512} {
		var progress Progress
		matches, err := newTestScanner(img, WithChunkSize(chunk)).FirstScan(context.Background(), opts, &progress)
		require.NoError(t, err)
		assert.Equal(t, []process.ProcessMemoryAddress{0x10000 + 100, 0x10000 + 1020}, matches.Addresses(), "chunk %d", chunk)
		assert.Equal(t, 1.0, progress.Fraction())
	}
}

func TestFirstScanTextAndFloatKinds(t *testing.T) {
	wide, err := process.EncodeUTF16("Player")
	require.NoError(t, err)

	data := make([]byte, 0x200)
	copy(data[0x10:], wide)
	copy(data[0x40:], binary.LittleEndian.AppendUint32(nil, math.Float32bits(1.5)))
	copy(data[0x80:], binary.LittleEndian.AppendUint64(nil, math.Float64bits(-2.25)))
	copy(data[0xC0:], []byte("Player"))
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x9000, data))

	tests := []struct {
		kind ValueKind
		expr string
		want process.ProcessMemoryAddress
	}{
		{KindUTF16, "Player", 0x9010},
		{KindFloat, "1.5", 0x9040},
		{KindDouble, "-2.25", 0x9080},
		{KindASCII, "Player", 0x90C0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			matches, err := newTestScanner(img).FirstScan(context.Background(), autoOptions(tt.kind, tt.expr), nil)
			require.NoError(t, err)
			assert.Equal(t, []process.ProcessMemoryAddress{tt.want}, matches.Addresses())
		})
	}
}

func TestFirstScanSkipsUnreadableChunks(t *testing.T) {
	data := make([]byte, 64)
	copy(data[4:], []byte{0xAA, 0xBB})
	copy(data[40:], []byte{0xAA, 0xBB})
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x1000, data))
	img.ReadFault = func(addr process.ProcessMemoryAddress, size int) bool {
		return addr == 0x1000
	}

	matches, err := newTestScanner(img, WithChunkSize(32)).FirstScan(context.Background(), autoOptions(KindBytes, "AA BB"), nil)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x1000 + 40}, matches.Addresses())
}

func TestFirstScanProgressIsMonotonic(t *testing.T) {
	img := process_blob.NewImage(testPID,
		process_blob.NewProcessBlob(0x1000, make([]byte, 1000)),
		process_blob.NewProcessBlob(0x5000, make([]byte, 333)),
	)

	var progress Progress
	var samples []float64
	img.ReadFault = func(process.ProcessMemoryAddress, int) bool {
		samples = append(samples, progress.Fraction())
		return false
	}

	_, err := newTestScanner(img, WithChunkSize(64)).FirstScan(context.Background(), autoOptions(KindBytes, "01 02"), &progress)
	require.NoError(t, err)
	samples = append(samples, progress.Fraction())

	require.Greater(t, len(samples), 10)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1])
	}
	assert.Equal(t, 0.0, samples[0])
	assert.Equal(t, 1.0, samples[len(samples)-1])
}

func TestFirstScanCanceled(t *testing.T) {
	data := make([]byte, 256)
	for i := 0; i < len(data); i += 16 {
		data[i] = 0x90
	}
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x1000, data))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := 0
	img.ReadFault = func(process.ProcessMemoryAddress, int) bool {
		reads++
		if reads == 2 {
			cancel()
		}
		return false
	}

	var progress Progress
	matches, err := newTestScanner(img, WithChunkSize(32)).FirstScan(ctx, autoOptions(KindBytes, "90"), &progress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, progress.Status())
	assert.Equal(t, []process.ProcessMemoryAddress{0x1000, 0x1010, 0x1020, 0x1030}, matches.Addresses())
	assert.Less(t, progress.Fraction(), 1.0)
	assert.True(t, img.Closed())
}

func TestFirstScanPreconditions(t *testing.T) {
	img := process_blob.NewImage(testPID, process_blob.NewProcessBlob(0x1000, make([]byte, 16)))
	scanner := newTestScanner(img)

	var progress Progress
	_, err := scanner.FirstScan(context.Background(), autoOptions(KindBytes, "4"), &progress)
	assert.ErrorIs(t, err, process.ErrInvalidPattern)
	assert.Equal(t, StatusInvalidPattern, progress.Status())

	_, err = scanner.FirstScan(context.Background(), autoOptions(KindInt32, "twelve"), &progress)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = scanner.FirstScan(context.Background(), autoOptions(KindInt32, "4294967296"), &progress)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = scanner.FirstScan(context.Background(), ScanOptions{PID: testPID, Base: 0x1000, Kind: KindBytes, Expression: "00"}, &progress)
	assert.ErrorIs(t, err, ErrLengthZero)
	assert.Equal(t, StatusLengthZero, progress.Status())

	assert.Zero(t, img.Opens(), "no precondition failure may touch the target")

	opts := autoOptions(KindBytes, "00")
	opts.PID = 1
	_, err = scanner.FirstScan(context.Background(), opts, &progress)
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.Equal(t, StatusOpenFailed, progress.Status())
}

func TestFirstScanNoReadableRegions(t *testing.T) {
	img := process_blob.NewImage(testPID,
		process_blob.NewProcessBlob(0x1000, make([]byte, 16)).WithProtect(memory_map.PageNoAccess),
	)

	var progress Progress
	_, err := newTestScanner(img).FirstScan(context.Background(), autoOptions(KindBytes, "00"), &progress)
	assert.ErrorIs(t, err, ErrNoReadableRegions)
	assert.Equal(t, StatusNoRegions, progress.Status())
	assert.True(t, img.Closed())
}

func TestParseValueKindAndCompareMode(t *testing.T) {
	k, err := ParseValueKind("Double")
	require.NoError(t, err)
	assert.Equal(t, KindDouble, k)

	k, err = ParseValueKind("aob")
	require.NoError(t, err)
	assert.Equal(t, KindBytes, k)

	_, err = ParseValueKind("int128")
	assert.Error(t, err)

	m, err := ParseCompareMode("unchanged")
	require.NoError(t, err)
	assert.Equal(t, CompareUnchanged, m)

	m, err = ParseCompareMode("+")
	require.NoError(t, err)
	assert.Equal(t, CompareIncreased, m)

	_, err = ParseCompareMode("bigger")
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-7", FormatValue(KindInt32, int32Bytes(-7)))
	assert.Equal(t, "1.5", FormatValue(KindFloat, binary.LittleEndian.AppendUint32(nil, math.Float32bits(1.5))))
	assert.Equal(t, `"hi"`, FormatValue(KindASCII, []byte("hi")))
	assert.Equal(t, "DE AD", FormatValue(KindBytes, []byte{0xDE, 0xAD}))
}
