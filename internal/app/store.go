package app

import (
	"context"

	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// The methods below let the TCP server and the SDK drive a running App.

func (a *App) ListBoards() ([]schema.Board, error) {
	return a.store.Boards(), nil
}

func (a *App) GetBoard(id string) (schema.Board, error) {
	b, ok := a.store.Get(id)
	if !ok {
		return schema.Board{}, engine.ErrNotFound
	}
	return b, nil
}

func (a *App) PutBoard(b schema.Board) error {
	_, err := a.Dispatch(context.Background(), PutBoard{Board: b})
	return err
}

// DeleteBoard reports false when the board exists but the acting user is not its host.
func (a *App) DeleteBoard(id string) (bool, error) {
	if _, ok := a.store.Get(id); !ok {
		return false, engine.ErrNotFound
	}
	res, err := a.Dispatch(context.Background(), DeleteBoard{ID: id})
	return res.Applied, err
}

func (a *App) Open(id string) (schema.Board, error) {
	res, err := a.Dispatch(context.Background(), OpenBoard{ID: id})
	if err != nil {
		return schema.Board{}, err
	}
	if !res.Applied {
		return schema.Board{}, engine.ErrNotFound
	}
	return *res.Board, nil
}

func (a *App) CurrentBoard() (schema.Board, error) {
	b, ok := a.store.Current()
	if !ok {
		return schema.Board{}, engine.ErrNotFound
	}
	return b, nil
}
