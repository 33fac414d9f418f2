package selection

import (
	"fmt"
	"os"
	"testing"

	"pickpoint/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	lockerID int64
	selected bool
	removed  bool
	onClick  func()
}

func (m *fakeMarker) SetSelected(selected bool) { m.selected = selected }
func (m *fakeMarker) Remove()                   { m.removed = true }

type fakeSurface struct {
	markers     []*fakeMarker
	overlayOpen bool
	overlayFor  int64
}

func (s *fakeSurface) AddMarker(locker models.Locker, onClick func()) MarkerHandle {
	m := &fakeMarker{lockerID: locker.ID, onClick: onClick}
	s.markers = append(s.markers, m)
	return m
}

func (s *fakeSurface) OpenOverlay(anchor MarkerHandle, content *OverlayContent) {
	s.overlayOpen = true
	s.overlayFor = content.Locker.ID
}

func (s *fakeSurface) CloseOverlay() {
	s.overlayOpen = false
}

func (s *fakeSurface) live() []*fakeMarker {
	var out []*fakeMarker
	for _, m := range s.markers {
		if !m.removed {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeSurface) liveByID(id int64) *fakeMarker {
	for _, m := range s.live() {
		if m.lockerID == id {
			return m
		}
	}
	return nil
}

func testLockers(ids ...int64) []models.Locker {
	lockers := make([]models.Locker, 0, len(ids))
	for _, id := range ids {
		lockers = append(lockers, models.Locker{
			ID:                id,
			Name:              fmt.Sprintf("Locker %d", id),
			TotalCompartments: 4,
			Status:            models.LockerStatusActive,
		})
	}
	return lockers
}

func newTestSync(t *testing.T, selectable bool) (*Synchronizer, *fakeSurface, *RendererSlot) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	surface := &fakeSurface{}
	slot := NewRendererSlot(nil)
	return NewSynchronizer(surface, slot, selectable, &logger), surface, slot
}

func TestOneMarkerPerLocker(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)

	sync.SetLockers(testLockers(1, 2, 3))
	require.Equal(t, 3, sync.MarkerCount())

	seen := make(map[int64]bool)
	for _, m := range surface.live() {
		assert.False(t, seen[m.lockerID], "duplicate marker for locker %d", m.lockerID)
		seen[m.lockerID] = true
	}
	assert.Len(t, seen, 3)
}

func TestRepeatedListUpdateLeaksNoMarkers(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)

	lockers := testLockers(1, 2)
	sync.SetLockers(lockers)
	sync.SetLockers(lockers)
	sync.SetLockers(lockers)

	assert.Equal(t, 2, sync.MarkerCount())
	assert.Len(t, surface.live(), 2)
}

func TestSingleSelectedMarker(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)
	lockers := testLockers(1, 2)
	sync.SetLockers(lockers)

	sync.SelectLocker(lockers[0])
	sync.SelectLocker(lockers[1])

	assert.False(t, surface.liveByID(1).selected)
	assert.True(t, surface.liveByID(2).selected)
	require.NotNil(t, sync.SelectedLocker())
	assert.Equal(t, int64(2), sync.SelectedLocker().ID)

	var selectedCount int
	for _, m := range surface.live() {
		if m.selected {
			selectedCount++
		}
	}
	assert.Equal(t, 1, selectedCount)
}

func TestSelectClosesOverlay(t *testing.T) {
	sync, surface, slot := newTestSync(t, true)
	lockers := testLockers(1)
	sync.SetLockers(lockers)

	var rendered models.Locker
	var selectFn func()
	slot.Set(func(container *OverlayContent, locker models.Locker, onSelect func()) {
		rendered = locker
		selectFn = onSelect
	})

	surface.liveByID(1).onClick()
	assert.True(t, surface.overlayOpen)
	assert.Equal(t, int64(1), surface.overlayFor)
	assert.Equal(t, int64(1), rendered.ID)

	selectFn()
	assert.False(t, surface.overlayOpen)
	require.NotNil(t, sync.SelectedLocker())
	assert.Equal(t, int64(1), sync.SelectedLocker().ID)
}

func TestClearSelectionIdempotent(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)
	lockers := testLockers(1)
	sync.SetLockers(lockers)
	sync.SelectLocker(lockers[0])

	sync.ClearSelection()
	assert.Nil(t, sync.SelectedLocker())
	assert.False(t, surface.liveByID(1).selected)

	sync.ClearSelection()
	assert.Nil(t, sync.SelectedLocker())
}

func TestListReplacePreservesSelectionByID(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)
	first := testLockers(1, 2)
	sync.SetLockers(first)
	sync.SelectLocker(first[1])

	// New list still contains id 2, selection carries over onto the
	// fresh marker.
	sync.SetLockers(testLockers(2, 3))
	require.NotNil(t, sync.SelectedLocker())
	assert.Equal(t, int64(2), sync.SelectedLocker().ID)
	assert.True(t, surface.liveByID(2).selected)

	// New list drops id 2, selection is cleared.
	sync.SetLockers(testLockers(3, 4))
	assert.Nil(t, sync.SelectedLocker())
}

func TestNonSelectableSkipsTinting(t *testing.T) {
	sync, surface, _ := newTestSync(t, false)
	lockers := testLockers(1, 2)
	sync.SetLockers(lockers)

	sync.SelectLocker(lockers[0])
	require.NotNil(t, sync.SelectedLocker())
	assert.Equal(t, int64(1), sync.SelectedLocker().ID)
	assert.False(t, surface.liveByID(1).selected)
}

func TestRendererSlotInvokesLatest(t *testing.T) {
	sync, surface, slot := newTestSync(t, true)
	sync.SetLockers(testLockers(1))

	var calls []string
	slot.Set(func(container *OverlayContent, locker models.Locker, onSelect func()) {
		calls = append(calls, "first")
	})
	surface.liveByID(1).onClick()

	// Swapping the renderer must not require a marker rebuild.
	slot.Set(func(container *OverlayContent, locker models.Locker, onSelect func()) {
		calls = append(calls, "second")
	})
	surface.liveByID(1).onClick()

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestTeardownRemovesEverything(t *testing.T) {
	sync, surface, _ := newTestSync(t, true)
	lockers := testLockers(1, 2)
	sync.SetLockers(lockers)
	sync.SelectLocker(lockers[0])

	sync.Teardown()

	assert.Equal(t, 0, sync.MarkerCount())
	assert.Empty(t, surface.live())
	assert.Nil(t, sync.SelectedLocker())
	assert.False(t, surface.overlayOpen)
}
