package search

import (
	"go.uber.org/atomic"
)

// Status strings published through Progress.
const (
	StatusScanning        = "Scanning"
	StatusFiltering       = "Filtering"
	StatusDone            = "Done"
	StatusFiltered        = "Filtered"
	StatusCanceled        = "Canceled"
	StatusOpenFailed      = "OpenProcess failed"
	StatusLengthZero      = "Length is zero"
	StatusNoRegions       = "No readable regions"
	StatusInvalidPattern  = "Invalid hex pattern"
	StatusInvalidValue    = "Invalid value"
	StatusMissingBaseline = "No previous values"
)

// Progress is shared between a running scan and its observers. The zero
// value is ready to use and a nil *Progress discards updates.
type Progress struct {
	fraction atomic.Float64
	status   atomic.String
}

// Fraction returns the share of work done, in [0, 1].
func (p *Progress) Fraction() float64 {
	if p == nil {
		return 0
	}
	return p.fraction.Load()
}

func (p *Progress) Status() string {
	if p == nil {
		return ""
	}
	return p.status.Load()
}

func (p *Progress) reset(status string) {
	if p == nil {
		return
	}
	p.fraction.Store(0)
	p.status.Store(status)
}

func (p *Progress) advance(done, total uint64) {
	if p == nil {
		return
	}
	if total == 0 || done >= total {
		p.fraction.Store(1)
		return
	}
	p.fraction.Store(float64(done) / float64(total))
}

func (p *Progress) finish(status string) {
	if p == nil {
		return
	}
	p.status.Store(status)
}
