//go:build !windows

package process_windows

import (
	"testing"

	"rekit/process"
	"rekit/snapshot"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedPlatform(t *testing.T) {
	_, err := OpenForScan(1)
	assert.ErrorIs(t, err, process.ErrUnsupported)

	_, err = snapshot.QueryProcesses(NewSystemInformation(), 64, 128)
	assert.ErrorIs(t, err, process.ErrUnsupported)

	_, err = NewKernel().LoaderAddress()
	assert.ErrorIs(t, err, process.ErrUnsupported)

	_, err = ListModules(1)
	assert.ErrorIs(t, err, process.ErrUnsupported)

	assert.ErrorIs(t, Terminate(1234), process.ErrUnsupported)
}
