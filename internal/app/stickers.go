package app

import (
	"context"
	"fmt"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// GenerateSticker asks the generator for an image and adds it to the board
// that was open when the request started. The remote call runs on the caller's
// goroutine; if the user has moved to another board by the time it returns,
// the sticker is discarded and Applied is false.
func (a *App) GenerateSticker(ctx context.Context, prompt, as string) (Result, error) {
	if a.principal(as) == "" {
		return Result{}, ErrNoUser
	}
	board, ok := a.store.Current()
	if !ok {
		return Result{}, ErrNoBoard
	}

	payload, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "sticker generation failed", "board", board.ID, "error", err)
		return Result{}, fmt.Errorf("generate sticker: %w", err)
	}

	return a.Dispatch(ctx, AddItem{
		Type:    schema.ItemSticker,
		Content: payload,
		Color:   schema.Transparent,
		BoardID: board.ID,
		As:      as,
	})
}
