package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"rekit/process"
)

// keepFunc decides whether a candidate survives given its fresh and previous bytes.
type keepFunc func(cur, prev []byte) bool

// NextScan re-reads every address of previous and keeps those satisfying
// opts.Compare. The result is always a subset of previous in the same order.
// Candidates whose read fails are dropped. On cancellation the survivors so
// far are returned with ctx.Err().
func (s *Scanner) NextScan(ctx context.Context, opts ScanOptions, previous MatchSet, progress *Progress) (MatchSet, error) {
	progress.reset(StatusFiltering)

	width, keep, err := s.predicate(opts, previous)
	if err != nil {
		switch {
		case errors.Is(err, process.ErrInvalidPattern):
			progress.finish(StatusInvalidPattern)
		case errors.Is(err, ErrMissingBaseline):
			progress.finish(StatusMissingBaseline)
		default:
			progress.finish(StatusInvalidValue)
		}
		return nil, err
	}

	if len(previous) == 0 {
		progress.advance(0, 0)
		progress.finish(StatusFiltered)
		return MatchSet{}, nil
	}

	proc, err := s.open(opts.PID)
	if err != nil {
		progress.finish(StatusOpenFailed)
		return nil, fmt.Errorf("%w: pid %d: %v", ErrOpenFailed, opts.PID, err)
	}
	defer proc.Close()

	s.log.Infoln("next scan pid", opts.PID, "mode", opts.Compare, "candidates", len(previous))

	total := uint64(len(previous))
	kept := make(MatchSet, 0, len(previous))
	buf := make([]byte, width)

	for i, m := range previous {
		if err := ctx.Err(); err != nil {
			progress.finish(StatusCanceled)
			return kept, err
		}

		cur := buf[:width]
		n, err := proc.ReadMemory(m.Address, cur)
		if err == nil && n == width && keep(cur, m.Value) {
			kept = append(kept, Match{Address: m.Address, Value: append([]byte(nil), cur...)})
		}

		progress.advance(uint64(i+1), total)
	}

	progress.finish(StatusFiltered)
	s.log.Infoln("next scan pid", opts.PID, "kept", len(kept), "of", len(previous))
	return kept, nil
}

// predicate resolves the read width and the survival test for opts.
func (s *Scanner) predicate(opts ScanOptions, previous MatchSet) (int, keepFunc, error) {
	switch {
	case opts.Kind == KindBytes:
		aob, err := process.ParseAOB(opts.Expression)
		if err != nil {
			return 0, nil, err
		}
		return aob.Len(), func(cur, _ []byte) bool { return aob.MatchAt(cur, 0) }, nil

	case !opts.Kind.IsNumeric():
		literal, err := encodeLiteral(opts.Kind, opts.Expression)
		if err != nil {
			return 0, nil, err
		}
		return len(literal), func(cur, _ []byte) bool { return bytes.Equal(cur, literal) }, nil

	case opts.Compare == CompareExact:
		literal, err := encodeLiteral(opts.Kind, opts.Expression)
		if err != nil {
			return 0, nil, err
		}
		return len(literal), func(cur, _ []byte) bool { return bytes.Equal(cur, literal) }, nil
	}

	width := opts.Kind.Width()
	for _, m := range previous {
		if len(m.Value) != width {
			return 0, nil, fmt.Errorf("%w: %s at %s", ErrMissingBaseline, opts.Compare, m.Address.ToString())
		}
	}

	kind := opts.Kind
	switch opts.Compare {
	case CompareIncreased:
		return width, func(cur, prev []byte) bool { return numeric(kind, cur) > numeric(kind, prev) }, nil
	case CompareDecreased:
		return width, func(cur, prev []byte) bool { return numeric(kind, cur) < numeric(kind, prev) }, nil
	case CompareChanged:
		return width, func(cur, prev []byte) bool { return !bytes.Equal(cur, prev) }, nil
	case CompareUnchanged:
		return width, func(cur, prev []byte) bool { return bytes.Equal(cur, prev) }, nil
	}

	return 0, nil, fmt.Errorf("%w: unknown compare mode %s", ErrInvalidValue, opts.Compare)
}
