//go:build windows

package process_windows

import (
	"fmt"

	"rekit/process"
	"rekit/snapshot"

	"golang.org/x/sys/windows"
)

const maxImagePath = 32768

// ImagePaths resolves full image paths with a limited-information handle
type ImagePaths struct{}

var _ snapshot.PathResolver = ImagePaths{}

func NewImagePaths() ImagePaths {
	return ImagePaths{}
}

func (ImagePaths) ImagePath(pid process.ProcessID) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return "", fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	size := uint32(windows.MAX_PATH)
	for {
		buf := make([]uint16, size)
		n := size
		err := windows.QueryFullProcessImageName(h, 0, &buf[0], &n)
		if err == nil {
			return windows.UTF16ToString(buf[:n]), nil
		}
		if err != windows.ERROR_INSUFFICIENT_BUFFER || size >= maxImagePath {
			return "", fmt.Errorf("QueryFullProcessImageName %d failed: %w", pid, err)
		}
		size *= 2
	}
}
