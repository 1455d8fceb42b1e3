package app

import (
	"github.com/celerix-dev/celerix-canvas/internal/interaction"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// Message is a mutation request applied by the dispatcher. As, where present,
// names the acting principal; empty means the logged-in user.
type Message interface {
	message()
}

// Layer is the direction of a layer change.
type Layer string

const (
	Front Layer = "front"
	Back  Layer = "back"
)

// BeginDrag starts moving an item on the current board.
type BeginDrag struct {
	ItemID  string
	Pointer interaction.Point
	As      string
}

// BeginResize starts resizing an item on the current board.
type BeginResize struct {
	ItemID  string
	Pointer interaction.Point
	As      string
}

type PointerMove struct {
	Pointer interaction.Point
}

// Release commits the active gesture.
type Release struct{}

type CancelGesture struct{}

type AddItem struct {
	Type      schema.ItemType
	Content   string
	Color     string
	TextColor string
	// BoardID pins the item to a board; the add is dropped if that board is
	// no longer current. Empty means the current board.
	BoardID string
	As      string
}

type DeleteItem struct {
	ItemID string
	As     string
}

type ChangeLayer struct {
	ItemID    string
	Direction Layer
	As        string
}

type CreateBoard struct {
	Topic string
	As    string
}

type OpenBoard struct {
	ID string
}

type CloseBoard struct{}

type DeleteBoard struct {
	ID string
	As string
}

// SetBackground changes the current board's background. Host only.
type SetBackground struct {
	Image string
	Size  schema.BackgroundSize
	As    string
}

// PutBoard stores a board supplied by a client and shares it with other observers.
type PutBoard struct {
	Board schema.Board
}

// RemoteSnapshot is a board received from another observer.
type RemoteSnapshot struct {
	Board schema.Board
}

type Login struct {
	Name string
}

type Logout struct{}

type SetLanguage struct {
	Code string
}

type SetViewport struct {
	Center interaction.Point
}

func (BeginDrag) message()      {}
func (BeginResize) message()    {}
func (PointerMove) message()    {}
func (Release) message()        {}
func (CancelGesture) message()  {}
func (AddItem) message()        {}
func (DeleteItem) message()     {}
func (ChangeLayer) message()    {}
func (CreateBoard) message()    {}
func (OpenBoard) message()      {}
func (CloseBoard) message()     {}
func (DeleteBoard) message()    {}
func (SetBackground) message()  {}
func (PutBoard) message()       {}
func (RemoteSnapshot) message() {}
func (Login) message()          {}
func (Logout) message()         {}
func (SetLanguage) message()    {}
func (SetViewport) message()    {}

// Result reports what a message did. Applied is false when the message was
// ignored: unauthorized, stale, or referring to something that no longer exists.
type Result struct {
	Applied bool               `json:"applied"`
	Board   *schema.Board      `json:"board,omitempty"`
	Item    *schema.CanvasItem `json:"item,omitempty"`
	User    *schema.User       `json:"user,omitempty"`
}

func ignored() Result {
	return Result{}
}

func boardResult(b schema.Board) Result {
	return Result{Applied: true, Board: &b}
}
