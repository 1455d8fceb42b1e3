// Package interaction tracks the single drag or resize gesture an observer can
// have in flight.
package interaction

import (
	"math"
	"sync"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// State is the gesture currently in progress.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Point is a pointer position in board-local pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Commit is what a finished gesture hands back for persisting.
type Commit struct {
	BoardID string
	Item    schema.CanvasItem
}

// Machine holds at most one active gesture. The first Begin wins; later ones
// are refused until Release or Cancel.
type Machine struct {
	mu sync.Mutex

	state   State
	boardID string
	start   Point

	// Values captured at Begin. Every Move is computed from these.
	origX, origY float64
	origW        float64
	origH        *float64

	live schema.CanvasItem
}

// New returns an idle machine.
func New() *Machine {
	return &Machine{}
}

// BeginDrag starts moving item. It reports false if a gesture is already active.
func (m *Machine) BeginDrag(boardID string, item schema.CanvasItem, p Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return false
	}
	m.state = Dragging
	m.boardID = boardID
	m.start = p
	m.origX, m.origY = item.X, item.Y
	m.live = item.Clone()
	return true
}

// BeginResize starts resizing item. Undefined dimensions take the type defaults.
func (m *Machine) BeginResize(boardID string, item schema.CanvasItem, p Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return false
	}

	defW, defH := schema.DefaultSize(item.Type)
	w := defW
	if item.Width != nil {
		w = *item.Width
	}
	h := defH
	if item.Height != nil {
		h = schema.Float(*item.Height)
	}

	m.state = Resizing
	m.boardID = boardID
	m.start = p
	m.origW, m.origH = w, h
	m.live = item.Clone()
	return true
}

// Move applies the pointer position to the active item and returns its live
// value. It reports false when idle.
func (m *Machine) Move(p Point) (schema.CanvasItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dx, dy := p.X-m.start.X, p.Y-m.start.Y
	switch m.state {
	case Dragging:
		m.live.X = m.origX + dx
		m.live.Y = m.origY + dy
	case Resizing:
		m.live.Width = schema.Float(math.Max(schema.MinItemSize, m.origW+dx))
		if m.origH != nil {
			m.live.Height = schema.Float(math.Max(schema.MinItemSize, *m.origH+dy))
		} else {
			m.live.Height = nil
		}
	default:
		return schema.CanvasItem{}, false
	}
	return m.live.Clone(), true
}

// Release ends the gesture and returns the item to commit.
func (m *Machine) Release() (Commit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return Commit{}, false
	}
	c := Commit{BoardID: m.boardID, Item: m.live.Clone()}
	m.resetLocked()
	return c, true
}

// Cancel drops the gesture without committing.
func (m *Machine) Cancel() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the ids of the item and board being manipulated, or empty
// strings when idle.
func (m *Machine) Active() (itemID, boardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return "", ""
	}
	return m.live.ID, m.boardID
}

// Live returns the in-flight value of the active item.
func (m *Machine) Live() (schema.CanvasItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return schema.CanvasItem{}, false
	}
	return m.live.Clone(), true
}

func (m *Machine) resetLocked() {
	m.state = Idle
	m.boardID = ""
	m.start = Point{}
	m.origX, m.origY, m.origW, m.origH = 0, 0, 0, nil
	m.live = schema.CanvasItem{}
}
