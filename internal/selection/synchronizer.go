package selection

import (
	"sync"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
)

// MarkerHandle is a mutable pin owned by the Synchronizer. No other
// component holds marker references; everything goes through the
// synchronizer's id-keyed collection.
type MarkerHandle interface {
	SetSelected(selected bool)
	Remove()
}

// MarkerSurface is the map surface markers live on. Implementations are
// expected to be cheap to call; the synchronizer rebuilds all markers
// wholesale on every list change.
type MarkerSurface interface {
	AddMarker(locker models.Locker, onClick func()) MarkerHandle
	OpenOverlay(anchor MarkerHandle, content *OverlayContent)
	CloseOverlay()
}

// Synchronizer maintains exactly one marker per locker in the current
// list and at most one selected locker. List changes rebuild every
// marker rather than diffing; locker lists are small and change only on
// page load or manual retry.
type Synchronizer struct {
	surface    MarkerSurface
	renderer   *RendererSlot
	selectable bool
	logger     *zerolog.Logger

	mu       sync.Mutex
	markers  map[int64]MarkerHandle
	lockers  map[int64]models.Locker
	selected int64 // locker id, 0 = none
}

func NewSynchronizer(surface MarkerSurface, renderer *RendererSlot, selectable bool, logger *zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		surface:    surface,
		renderer:   renderer,
		selectable: selectable,
		logger:     logger,
		markers:    make(map[int64]MarkerHandle),
		lockers:    make(map[int64]models.Locker),
	}
}

// SetLockers replaces the marker set with one marker per locker. If the
// previously selected locker id is still present its marker is re-tinted
// and the selection survives, otherwise the selection is cleared.
func (s *Synchronizer) SetLockers(lockers []models.Locker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, handle := range s.markers {
		handle.Remove()
	}
	s.markers = make(map[int64]MarkerHandle, len(lockers))
	s.lockers = make(map[int64]models.Locker, len(lockers))

	for _, locker := range lockers {
		locker := locker
		s.lockers[locker.ID] = locker
		s.markers[locker.ID] = s.surface.AddMarker(locker, func() {
			s.handleClick(locker.ID)
		})
	}

	if s.selected != 0 {
		if handle, ok := s.markers[s.selected]; ok {
			if s.selectable {
				handle.SetSelected(true)
			}
		} else {
			s.selected = 0
		}
	}

	s.logger.Debug().Int("markers", len(s.markers)).Msg("Rebuilt locker markers")
}

func (s *Synchronizer) handleClick(id int64) {
	s.mu.Lock()
	locker, ok := s.lockers[id]
	handle := s.markers[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	content := &OverlayContent{Locker: locker}
	s.renderer.Render(content, locker, func() {
		s.SelectLocker(locker)
	})
	s.surface.OpenOverlay(handle, content)
}

// SelectLocker makes the given locker the single selection: the previous
// marker reverts, the new one tints, the overlay closes. With selectable
// off the tinting is skipped but the selection value still updates.
func (s *Synchronizer) SelectLocker(locker models.Locker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectable {
		if prev, ok := s.markers[s.selected]; ok && s.selected != locker.ID {
			prev.SetSelected(false)
		}
		if handle, ok := s.markers[locker.ID]; ok {
			handle.SetSelected(true)
		}
	}

	s.selected = locker.ID
	s.surface.CloseOverlay()
}

// ClearSelection is idempotent.
func (s *Synchronizer) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == 0 {
		return
	}
	if s.selectable {
		if handle, ok := s.markers[s.selected]; ok {
			handle.SetSelected(false)
		}
	}
	s.selected = 0
}

// SelectedLocker returns the current selection, nil when none.
func (s *Synchronizer) SelectedLocker() *models.Locker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == 0 {
		return nil
	}
	locker, ok := s.lockers[s.selected]
	if !ok {
		return nil
	}
	return &locker
}

// MarkerCount reports how many live markers the synchronizer owns.
func (s *Synchronizer) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// Teardown removes every marker and drops the selection. Called when the
// host screen goes away.
func (s *Synchronizer) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface.CloseOverlay()
	for _, handle := range s.markers {
		handle.Remove()
	}
	s.markers = make(map[int64]MarkerHandle)
	s.lockers = make(map[int64]models.Locker)
	s.selected = 0
}
