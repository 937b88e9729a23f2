package inject

import (
	"fmt"
	"runtime"

	"github.com/Binject/debug/pe"
)

const imageFileDLL = 0x2000

var machines = map[string]uint16{
	"386":   0x014c,
	"amd64": 0x8664,
	"arm64": 0xaa64,
}

// CheckModule verifies that path is a PE image flagged as a DLL and, where
// the running architecture is known, built for it.
func CheckModule(path string) error {
	f, err := pe.Open(path)
	if err != nil {
		return fmt.Errorf("open module %s: %w", path, err)
	}
	defer f.Close()

	if err := checkHeader(f.FileHeader.Machine, f.FileHeader.Characteristics, runtime.GOARCH); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func checkHeader(machine, characteristics uint16, arch string) error {
	if characteristics&imageFileDLL == 0 {
		return ErrNotDLL
	}

	if want, ok := machines[arch]; ok && machine != want {
		return fmt.Errorf("%w: image is %#04x, want %#04x", ErrMachineMismatch, machine, want)
	}
	return nil
}
