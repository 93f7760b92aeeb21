package app

import (
	"fmt"
	"sync"

	"github.com/abhisek/tutorly/internal/ui/layout"
)

// terminalFullscreen stands in for exclusive display in a terminal: the
// exam holds "fullscreen" while the frame is at least the minimum size the
// layout can render.
type terminalFullscreen struct {
	mu     sync.Mutex
	width  int
	height int
	known  bool
}

func (f *terminalFullscreen) fits() bool {
	return f.known && !layout.IsTooSmall(f.width, f.height)
}

// RequestFullscreen succeeds when the current frame is large enough.
func (f *terminalFullscreen) RequestFullscreen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.fits() {
		return fmt.Errorf("terminal is %dx%d, need at least %dx%d",
			f.width, f.height, layout.MinWidth, layout.MinHeight)
	}
	return nil
}

// ExitFullscreen is a no-op; the terminal keeps its size.
func (f *terminalFullscreen) ExitFullscreen() {}

// resize records a new frame size and reports whether it crossed the
// minimum in either direction.
func (f *terminalFullscreen) resize(width, height int) (changed, fits bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before, wasKnown := f.fits(), f.known
	f.width, f.height, f.known = width, height, true
	after := f.fits()
	return wasKnown && before != after, after
}
