package sdk

import (
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// ErrBoardNotFound is returned when a requested board does not exist.
var ErrBoardNotFound = engine.ErrNotFound

// --- Functional Interfaces (Interface Segregation) ---

// BoardReader defines the read operations.
type BoardReader interface {
	ListBoards() ([]schema.Board, error)
	GetBoard(id string) (schema.Board, error)
}

// BoardWriter stores and removes whole boards.
type BoardWriter interface {
	// PutBoard replaces the board with the same id, or adds it.
	PutBoard(board schema.Board) error
	// DeleteBoard reports false when the acting user is not the board's host.
	DeleteBoard(id string) (bool, error)
}

// BoardSelector opens boards.
type BoardSelector interface {
	Open(id string) (schema.Board, error)
	CurrentBoard() (schema.Board, error)
}

// --- Composite Interfaces ---

// Store is the primary interface for talking to a canvas, embedded or remote.
type Store interface {
	BoardReader
	BoardWriter
	BoardSelector
}
