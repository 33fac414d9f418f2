package selection

import (
	"sync"

	"pickpoint/internal/models"
)

// OverlayContent is the container handed to the host's renderer. The
// renderer fills it with whatever detail view it wants; the synchronizer
// only anchors it to a marker.
type OverlayContent struct {
	Locker models.Locker
	Title  string
	Body   string
}

// OverlayRenderer fills an overlay container for a locker. onSelect is
// the callback the renderer's "select" affordance should invoke.
type OverlayRenderer func(container *OverlayContent, locker models.Locker, onSelect func())

// RendererSlot holds the latest host-supplied renderer. Markers read the
// slot at click time instead of capturing the renderer at construction,
// so a host re-render that swaps the callback does not force a marker
// rebuild and never leaves markers invoking a stale closure.
type RendererSlot struct {
	mu       sync.RWMutex
	renderer OverlayRenderer
}

func NewRendererSlot(r OverlayRenderer) *RendererSlot {
	return &RendererSlot{renderer: r}
}

func (s *RendererSlot) Set(r OverlayRenderer) {
	s.mu.Lock()
	s.renderer = r
	s.mu.Unlock()
}

// Render invokes the current renderer. A nil renderer is a no-op, the
// overlay just opens empty.
func (s *RendererSlot) Render(container *OverlayContent, locker models.Locker, onSelect func()) {
	s.mu.RLock()
	r := s.renderer
	s.mu.RUnlock()

	if r != nil {
		r(container, locker, onSelect)
	}
}
