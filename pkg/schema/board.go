package schema

import (
	"slices"
	"time"
)

// ItemType is the kind of object placed on a board.
type ItemType string

const (
	ItemText    ItemType = "TEXT"
	ItemImage   ItemType = "IMAGE"
	ItemSticker ItemType = "STICKER"
	ItemEmoji   ItemType = "EMOJI"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemText, ItemImage, ItemSticker, ItemEmoji:
		return true
	}
	return false
}

// BackgroundSize mirrors the CSS background-size keywords a board accepts.
type BackgroundSize string

const (
	BackgroundCover   BackgroundSize = "cover"
	BackgroundContain BackgroundSize = "contain"
	BackgroundAuto    BackgroundSize = "auto"
)

func (s BackgroundSize) Valid() bool {
	return s == BackgroundCover || s == BackgroundContain || s == BackgroundAuto
}

// Transparent is the color sentinel for items drawn without a background.
const Transparent = "transparent"

// MinItemSize is the smallest width or height a resize may produce.
const MinItemSize = 50.0

// DefaultSize returns the dimensions an item of type t gets when none are set.
// TEXT items have auto height, reported as a nil height.
func DefaultSize(t ItemType) (float64, *float64) {
	switch t {
	case ItemText:
		return 250, nil
	case ItemEmoji:
		return 100, Float(100)
	default:
		return 200, Float(200)
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CanvasItem is a single object placed on a board.
// X and Y are the top-left corner in board-local pixels.
type CanvasItem struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	Content   string    `json:"content"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     *float64  `json:"width,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	Rotation  float64   `json:"rotation"`
	Author    string    `json:"author"`
	Color     string    `json:"color,omitempty"`
	TextColor string    `json:"textColor,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no pointers with it.
func (it CanvasItem) Clone() CanvasItem {
	out := it
	if it.Width != nil {
		out.Width = Float(*it.Width)
	}
	if it.Height != nil {
		out.Height = Float(*it.Height)
	}
	return out
}

// Board is a shared canvas. The order of Items is the z-order: later items draw on top.
type Board struct {
	ID              string         `json:"id"`
	Topic           string         `json:"topic"`
	Items           []CanvasItem   `json:"items"`
	CreatedAt       time.Time      `json:"createdAt"`
	Host            string         `json:"host"`
	BackgroundImage string         `json:"backgroundImage,omitempty"`
	BackgroundSize  BackgroundSize `json:"backgroundSize,omitempty"`
}

// Clone deep-copies the board including every item.
func (b Board) Clone() Board {
	out := b
	out.Items = make([]CanvasItem, len(b.Items))
	for i, it := range b.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// ItemIndex returns the position of the item with the given id, or -1.
func (b Board) ItemIndex(id string) int {
	return slices.IndexFunc(b.Items, func(it CanvasItem) bool { return it.ID == id })
}

// Item looks an item up by id.
func (b Board) Item(id string) (CanvasItem, bool) {
	i := b.ItemIndex(id)
	if i < 0 {
		return CanvasItem{}, false
	}
	return b.Items[i], true
}

// CanEdit reports whether principal may move, resize, delete or reorder item on b.
// Only the item's author and the board's host qualify.
func CanEdit(principal string, b Board, item CanvasItem) bool {
	if principal == "" {
		return false
	}
	return principal == item.Author || principal == b.Host
}
