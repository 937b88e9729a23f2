package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryGrowsBuffer(t *testing.T) {
	procs := []fakeProcess{{pid: 7, name: "a"}}
	require.Equal(t, 264, layoutSize(procs))

	q := &fakeQuerier{procs: procs}
	buf, err := Query(q, 64, 1<<20)
	require.NoError(t, err)
	assert.Len(t, buf, 264)
	assert.Equal(t, []int{64, 128, 256, 512}, q.sizes)
}

func TestQueryRespectsMaxSize(t *testing.T) {
	q := &fakeQuerier{procs: []fakeProcess{{pid: 7, name: "a"}}}
	_, err := Query(q, 64, 256)
	assert.ErrorIs(t, err, ErrBufferTooLarge)
	assert.Equal(t, []int{64, 128, 256}, q.sizes)
}

func TestQueryPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("access denied")
	q := &fakeQuerier{err: boom}
	_, err := Query(q, 64, 1024)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, q.calls())
}

func TestQueryProcessesForcedMismatch(t *testing.T) {
	q := &fakeQuerier{procs: sampleProcesses, mismatch: 2}
	records, err := QueryProcesses(q, 4096, 1<<20)
	require.NoError(t, err)
	assert.Len(t, records, len(sampleProcesses))
	assert.Equal(t, []int{4096, 8192, 16384}, q.sizes)
}
