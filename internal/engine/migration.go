package engine

import (
	"fmt"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// BoardSource lists boards for a migration.
type BoardSource interface {
	ListBoards() ([]schema.Board, error)
}

// BoardSink receives boards during a migration.
type BoardSink interface {
	PutBoard(board schema.Board) error
}

// Migrate copies every board from src into dst, keeping src order.
// This works for:
// - Embedded -> Remote (publishing a device's boards to a daemon)
// - Remote -> Embedded (taking an offline copy)
// Boards already present in dst are replaced whole, the same last-writer-wins
// rule the sync channel applies.
func Migrate(src BoardSource, dst BoardSink) (int, error) {
	boards, err := src.ListBoards()
	if err != nil {
		return 0, fmt.Errorf("failed to list boards: %w", err)
	}

	for i, b := range boards {
		if err := dst.PutBoard(b); err != nil {
			return i, fmt.Errorf("failed to put board %s in destination: %w", b.ID, err)
		}
	}
	return len(boards), nil
}
