// Package panel lets views of the process table register themselves under a
// menu path and share the currently selected process.
package panel

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var ErrUnknownPanel = errors.New("unknown panel")

// DrawFunc renders one frame of a panel.
type DrawFunc func(w io.Writer) error

// Host accepts panel registrations.
type Host interface {
	AddPanel(path string, draw DrawFunc)
}

type Registry struct {
	mu     sync.RWMutex
	panels map[string]DrawFunc
}

var _ Host = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{panels: map[string]DrawFunc{}}
}

// AddPanel registers draw under path, replacing any earlier registration.
func (r *Registry) AddPanel(path string, draw DrawFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[path] = draw
}

// Paths lists the registered menu paths in order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.panels))
	for p := range r.panels {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Draw renders the panel registered under path.
func (r *Registry) Draw(path string, w io.Writer) error {
	r.mu.RLock()
	draw, ok := r.panels[path]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, path)
	}
	return draw(w)
}
