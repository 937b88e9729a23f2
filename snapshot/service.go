package snapshot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"rekit/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultPollInterval  = time.Second
	DefaultPathCacheSize = 4096
)

// PathResolver looks up the full image path of a running process.
type PathResolver interface {
	ImagePath(pid process.ProcessID) (string, error)
}

// pathKey identifies one incarnation of a pid so reused ids are not confused.
type pathKey struct {
	pid     process.ProcessID
	created time.Time
}

// Service refreshes the process table in the background and serves copies
// of the latest successful snapshot.
type Service struct {
	querier     Querier
	paths       PathResolver
	clock       clock.Clock
	interval    time.Duration
	initialSize int
	maxSize     int
	cacheSize   int
	log         *logger.Logger

	pathCache *lru.Cache[pathKey, string]

	mu    sync.RWMutex
	table []ProcessRecord

	lifecycle sync.Mutex
	stop      chan struct{}
	done      chan struct{}
}

// Option is a function that configures a Service
type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBufferSizes(initial, max int) Option {
	return func(s *Service) {
		s.initialSize = initial
		s.maxSize = max
	}
}

// WithPathCacheSize bounds the image path cache; zero disables caching.
func WithPathCacheSize(n int) Option {
	return func(s *Service) {
		s.cacheSize = n
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a stopped service. paths may be nil, in which case no
// image paths are resolved.
func NewService(q Querier, paths PathResolver, options ...Option) *Service {
	s := &Service{
		querier:     q,
		paths:       paths,
		clock:       clock.New(),
		interval:    DefaultPollInterval,
		initialSize: DefaultInitialBufferSize,
		maxSize:     DefaultMaxBufferSize,
		cacheSize:   DefaultPathCacheSize,
		log:         logger.NewLogger(coloransi.Color(coloransi.Green, coloransi.Black, "snapshot")),
	}

	for _, opt := range options {
		opt(s)
	}

	if s.cacheSize > 0 {
		cache, err := lru.New[pathKey, string](s.cacheSize)
		if err == nil {
			s.pathCache = cache
		}
	}

	return s
}

// Start launches the refresh loop. The first refresh runs immediately.
// Calling Start on a running service does nothing.
func (s *Service) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	s.log.Infoln("Snapshot service started, interval", s.interval)
}

// Stop ends the refresh loop and waits for it to exit. Calling Stop on a
// stopped service does nothing.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.stop == nil {
		return
	}

	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	s.log.Infoln("Snapshot service stopped")
}

// Running reports whether the refresh loop is active.
func (s *Service) Running() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stop != nil
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.Refresh()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Refresh takes one snapshot. On failure the previous table is kept.
func (s *Service) Refresh() error {
	records, err := QueryProcesses(s.querier, s.initialSize, s.maxSize)
	if err != nil {
		s.log.Warn("Snapshot refresh failed: ", err)
		return err
	}

	for i := range records {
		records[i].ImagePath = s.imagePath(records[i])
	}

	s.mu.Lock()
	s.table = records
	s.mu.Unlock()

	s.log.Debugln("Snapshot refreshed,", len(records), "processes")
	return nil
}

func (s *Service) imagePath(rec ProcessRecord) string {
	if s.paths == nil || rec.PID == 0 {
		return ""
	}

	key := pathKey{pid: rec.PID, created: rec.CreateTime}
	if s.pathCache != nil {
		if path, ok := s.pathCache.Get(key); ok {
			return path
		}
	}

	path, err := s.paths.ImagePath(rec.PID)
	if err != nil {
		s.log.Debugln("No image path for pid", rec.PID, err)
		return ""
	}

	if s.pathCache != nil {
		s.pathCache.Add(key, path)
	}
	return path
}

// GetSnapshot returns a copy of the latest table.
func (s *Service) GetSnapshot() []ProcessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProcessRecord, len(s.table))
	for i, rec := range s.table {
		out[i] = rec.clone()
	}
	return out
}

// Count returns the number of processes in the latest table.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

// FindByPid returns the record for pid from the latest table.
func (s *Service) FindByPid(pid process.ProcessID) (ProcessRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.table {
		if rec.PID == pid {
			return rec.clone(), true
		}
	}
	return ProcessRecord{}, false
}

// Filter returns the records matching every non-empty criterion. name and
// path match as case-insensitive substrings; pid must equal exactly.
func (s *Service) Filter(name, pid, path string) ([]ProcessRecord, error) {
	var wantPID process.ProcessID
	hasPID := strings.TrimSpace(pid) != ""
	if hasPID {
		v, err := strconv.ParseUint(strings.TrimSpace(pid), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPID, pid)
		}
		wantPID = process.ProcessID(v)
	}

	name = strings.ToLower(name)
	path = strings.ToLower(path)

	var out []ProcessRecord
	for _, rec := range s.GetSnapshot() {
		if hasPID && rec.PID != wantPID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(rec.Name), name) {
			continue
		}
		if path != "" && !strings.Contains(strings.ToLower(rec.ImagePath), path) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
