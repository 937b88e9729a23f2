// Package search finds values in the memory of another process and narrows
// the candidates over successive reads.
package search

import (
	"context"
	"fmt"

	"rekit/process"
	"rekit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const DefaultChunkSize = 64 * 1024

// Scanner holds configuration for the scans
type Scanner struct {
	open      process.OpenFunc
	chunkSize int
	log       *logger.Logger
}

// Option is a function that configures a Scanner
type Option func(*Scanner)

// WithChunkSize sets how many bytes are read per call; the pattern overlap is added on top.
func WithChunkSize(size int) Option {
	return func(s *Scanner) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Scanner) {
		s.log = log
	}
}

func NewScanner(open process.OpenFunc, options ...Option) *Scanner {
	s := &Scanner{
		open:      open,
		chunkSize: DefaultChunkSize,
		log:       logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.Black, "scanner")),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// FirstScan searches the target for the pattern described by opts. On
// cancellation the matches found so far are returned with ctx.Err().
func (s *Scanner) FirstScan(ctx context.Context, opts ScanOptions, progress *Progress) (MatchSet, error) {
	progress.reset(StatusScanning)

	aob, err := opts.Pattern()
	if err != nil {
		if opts.Kind == KindBytes {
			progress.finish(StatusInvalidPattern)
		} else {
			progress.finish(StatusInvalidValue)
		}
		return nil, err
	}

	if !opts.AutoPages && opts.Length == 0 {
		progress.finish(StatusLengthZero)
		return nil, ErrLengthZero
	}

	proc, err := s.open(opts.PID)
	if err != nil {
		progress.finish(StatusOpenFailed)
		return nil, fmt.Errorf("%w: pid %d: %v", ErrOpenFailed, opts.PID, err)
	}
	defer proc.Close()

	regions := s.regions(proc, opts)
	if len(regions) == 0 {
		progress.finish(StatusNoRegions)
		return nil, ErrNoReadableRegions
	}

	s.log.Infoln("first scan pid", opts.PID, "kind", opts.Kind, "pattern", aob.String(), "regions", len(regions))

	total := memory_map.TotalSize(regions)
	var done uint64
	var matches MatchSet

	overlap := aob.Len() - 1
	buf := make([]byte, s.chunkSize+overlap)
	stride := opts.stride()

	for _, r := range regions {
		end := r.End()
		for cur := r.Address; cur < end; {
			if err := ctx.Err(); err != nil {
				progress.finish(StatusCanceled)
				return matches, err
			}

			span := min(uint64(s.chunkSize), end-cur)
			readLen := min(span+uint64(overlap), end-cur)

			// a partial read still yields the bytes it returned
			n, err := proc.ReadMemory(process.ProcessMemoryAddress(cur), buf[:readLen])
			if n == 0 {
				s.log.Debugln("skipping unreadable chunk", process.ProcessMemoryAddress(cur).ToString(), err)
			} else {
				if err != nil {
					s.log.Debugln("partial read", process.ProcessMemoryAddress(cur).ToString(), n, "of", readLen, err)
				}
				matches = appendMatches(matches, aob, buf[:n], cur, span, firstAligned(cur-r.Address, stride), stride)
			}

			cur += span
			done += span
			progress.advance(done, total)
		}
	}

	progress.advance(total, total)
	progress.finish(StatusDone)
	s.log.Infoln("first scan pid", opts.PID, "found", len(matches), "matches")
	return matches, nil
}

// regions selects the spans a first scan reads.
func (s *Scanner) regions(proc process.Process, opts ScanOptions) []memory_map.Region {
	if !opts.AutoPages {
		base := uint64(opts.Base)
		return []memory_map.Region{{Address: base, Size: uint64(opts.end()) - base}}
	}

	if opts.Length == 0 {
		return memory_map.EnumerateReadable(proc, 0, 0)
	}
	return memory_map.EnumerateReadable(proc, uint64(opts.Base), uint64(opts.end()))
}

// firstAligned returns the first offset into a chunk whose distance from the
// region base is a multiple of stride. rel is the chunk offset in its region.
func firstAligned(rel, stride uint64) uint64 {
	if stride <= 1 {
		return 0
	}
	return (stride - rel%stride) % stride
}

// appendMatches checks every anchor in [start, span) of data, which was read
// from addr, and appends each hit with a copy of the matched bytes.
func appendMatches(matches MatchSet, aob process.AOB, data []byte, addr, span, start, stride uint64) MatchSet {
	plen := uint64(aob.Len())
	for i := start; i < span && i+plen <= uint64(len(data)); i += stride {
		if aob.MatchAt(data, int(i)) {
			matches = append(matches, Match{
				Address: process.ProcessMemoryAddress(addr + i),
				Value:   append([]byte(nil), data[i:i+plen]...),
			})
		}
	}
	return matches
}
