package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-canvas/internal/interaction"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// Apply runs one message to completion. It is not safe for concurrent use;
// everything except tests goes through Dispatch.
func (a *App) Apply(ctx context.Context, msg Message) (Result, error) {
	switch m := msg.(type) {
	case BeginDrag:
		return a.beginGesture(m.ItemID, m.As, func(boardID string, item schema.CanvasItem) bool {
			return a.machine.BeginDrag(boardID, item, m.Pointer)
		})
	case BeginResize:
		return a.beginGesture(m.ItemID, m.As, func(boardID string, item schema.CanvasItem) bool {
			return a.machine.BeginResize(boardID, item, m.Pointer)
		})
	case PointerMove:
		item, ok := a.machine.Move(m.Pointer)
		if !ok {
			return ignored(), nil
		}
		return Result{Applied: true, Item: &item}, nil
	case Release:
		return a.release(ctx)
	case CancelGesture:
		a.machine.Cancel()
		return Result{Applied: true}, nil
	case AddItem:
		return a.addItem(ctx, m)
	case DeleteItem:
		return a.deleteItem(ctx, m)
	case ChangeLayer:
		return a.changeLayer(ctx, m)
	case CreateBoard:
		return a.createBoard(ctx, m)
	case OpenBoard:
		return a.openBoard(m.ID), nil
	case CloseBoard:
		a.machine.Cancel()
		a.store.SetCurrent("")
		return Result{Applied: true}, nil
	case DeleteBoard:
		return a.deleteBoard(m)
	case SetBackground:
		return a.setBackground(ctx, m)
	case PutBoard:
		if m.Board.ID == "" {
			return ignored(), fmt.Errorf("%w: board has no id", ErrInvalid)
		}
		a.store.UpsertBoard(m.Board)
		a.publish(ctx, m.Board)
		return boardResult(m.Board.Clone()), nil
	case RemoteSnapshot:
		if m.Board.ID == "" {
			return ignored(), nil
		}
		// Last received wins: no version or timestamp comparison.
		a.store.UpsertBoard(m.Board)
		return boardResult(m.Board.Clone()), nil
	case Login:
		return a.login(ctx, m.Name)
	case Logout:
		a.machine.Cancel()
		a.mu.Lock()
		a.state.user, a.state.loggedIn = schema.User{}, false
		a.mu.Unlock()
		if err := a.prefs.ClearUser(ctx); err != nil {
			a.logger.WarnContext(ctx, "could not clear stored user", "error", err)
		}
		return Result{Applied: true}, nil
	case SetLanguage:
		return a.setLanguage(ctx, m.Code)
	case SetViewport:
		a.mu.Lock()
		a.state.viewport = m.Center
		a.mu.Unlock()
		return Result{Applied: true}, nil
	default:
		return ignored(), fmt.Errorf("%w: unknown message %T", ErrInvalid, msg)
	}
}

// principal resolves who is acting: an explicit name, else the logged-in user.
func (a *App) principal(as string) string {
	if as = strings.TrimSpace(as); as != "" {
		return as
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.state.loggedIn {
		return ""
	}
	return a.state.user.Name
}

func (a *App) publish(ctx context.Context, b schema.Board) {
	if err := a.channel.Publish(ctx, b); err != nil {
		a.logger.WarnContext(ctx, "could not broadcast board", "board", b.ID, "error", err)
	}
}

// commit stores b and shares it with other observers.
func (a *App) commit(ctx context.Context, b schema.Board) Result {
	a.store.UpsertBoard(b)
	a.publish(ctx, b)
	return boardResult(b)
}

// editable returns the current board and the item if who may edit it.
func (a *App) editable(itemID, who string) (schema.Board, int, bool) {
	board, ok := a.store.Current()
	if !ok {
		return schema.Board{}, -1, false
	}
	idx := board.ItemIndex(itemID)
	if idx < 0 || !schema.CanEdit(who, board, board.Items[idx]) {
		return schema.Board{}, -1, false
	}
	return board, idx, true
}

func (a *App) beginGesture(itemID, as string, begin func(string, schema.CanvasItem) bool) (Result, error) {
	board, idx, ok := a.editable(itemID, a.principal(as))
	if !ok {
		return ignored(), nil
	}
	item := board.Items[idx]
	if !begin(board.ID, item) {
		return ignored(), nil
	}
	return Result{Applied: true, Item: &item}, nil
}

func (a *App) release(ctx context.Context) (Result, error) {
	c, ok := a.machine.Release()
	if !ok {
		return ignored(), nil
	}
	// The board or item may have been removed by a remote snapshot mid-gesture.
	board, ok := a.store.Get(c.BoardID)
	if !ok {
		return ignored(), nil
	}
	idx := board.ItemIndex(c.Item.ID)
	if idx < 0 {
		return ignored(), nil
	}
	board.Items[idx] = c.Item
	res := a.commit(ctx, board)
	res.Item = &c.Item
	return res, nil
}

func (a *App) jitter(limit float64) float64 {
	return (a.rng.Float64()*2 - 1) * limit
}

func (a *App) addItem(ctx context.Context, m AddItem) (Result, error) {
	if !m.Type.Valid() {
		return ignored(), fmt.Errorf("%w: unknown item type %q", ErrInvalid, m.Type)
	}
	author := a.principal(m.As)
	if author == "" {
		return ignored(), ErrNoUser
	}
	board, ok := a.store.Current()
	if !ok {
		return ignored(), ErrNoBoard
	}
	if m.BoardID != "" && m.BoardID != board.ID {
		a.logger.InfoContext(ctx, "discarding item for a board that is no longer open", "board", m.BoardID, "type", m.Type)
		return ignored(), nil
	}

	center := a.Viewport()
	w, h := schema.DefaultSize(m.Type)
	item := schema.CanvasItem{
		ID:        uuid.NewString(),
		Type:      m.Type,
		Content:   m.Content,
		X:         center.X + a.jitter(placementJitter),
		Y:         center.Y + a.jitter(placementJitter),
		Width:     schema.Float(w),
		Height:    h,
		Rotation:  a.jitter(rotationJitter),
		Author:    author,
		Color:     m.Color,
		TextColor: m.TextColor,
		CreatedAt: a.now().UTC(),
	}
	board.Items = append(board.Items, item)

	res := a.commit(ctx, board)
	res.Item = &item
	return res, nil
}

func (a *App) deleteItem(ctx context.Context, m DeleteItem) (Result, error) {
	board, idx, ok := a.editable(m.ItemID, a.principal(m.As))
	if !ok {
		return ignored(), nil
	}
	board.Items = append(board.Items[:idx], board.Items[idx+1:]...)
	return a.commit(ctx, board), nil
}

func (a *App) changeLayer(ctx context.Context, m ChangeLayer) (Result, error) {
	if m.Direction != Front && m.Direction != Back {
		return ignored(), fmt.Errorf("%w: layer direction %q", ErrInvalid, m.Direction)
	}
	board, idx, ok := a.editable(m.ItemID, a.principal(m.As))
	if !ok {
		return ignored(), nil
	}

	item := board.Items[idx]
	rest := append(board.Items[:idx:idx], board.Items[idx+1:]...)
	if m.Direction == Front {
		board.Items = append(rest, item)
	} else {
		board.Items = append([]schema.CanvasItem{item}, rest...)
	}
	return a.commit(ctx, board), nil
}

func (a *App) createBoard(ctx context.Context, m CreateBoard) (Result, error) {
	topic := strings.TrimSpace(m.Topic)
	if topic == "" {
		return ignored(), fmt.Errorf("%w: topic is required", ErrInvalid)
	}
	host := a.principal(m.As)
	if host == "" {
		return ignored(), ErrNoUser
	}

	board := schema.Board{
		ID:        uuid.NewString(),
		Topic:     topic,
		Items:     []schema.CanvasItem{},
		CreatedAt: a.now().UTC(),
		Host:      host,
	}
	a.machine.Cancel()
	res := a.commit(ctx, board)
	a.store.SetCurrent(board.ID)
	return res, nil
}

// openBoard selects a board. An unknown id leaves nothing open.
func (a *App) openBoard(id string) Result {
	if itemID, boardID := a.machine.Active(); itemID != "" && boardID != id {
		a.machine.Cancel()
	}
	board, ok := a.store.SetCurrent(id)
	if !ok {
		return ignored()
	}
	return boardResult(board)
}

func (a *App) deleteBoard(m DeleteBoard) (Result, error) {
	board, ok := a.store.Get(m.ID)
	who := a.principal(m.As)
	if !ok || who == "" || who != board.Host {
		return ignored(), nil
	}
	if _, boardID := a.machine.Active(); boardID == m.ID {
		a.machine.Cancel()
	}
	if err := a.store.DeleteBoard(m.ID); err != nil {
		return ignored(), nil
	}
	return boardResult(board), nil
}

func (a *App) setBackground(ctx context.Context, m SetBackground) (Result, error) {
	if m.Size != "" && !m.Size.Valid() {
		return ignored(), fmt.Errorf("%w: background size %q", ErrInvalid, m.Size)
	}
	board, ok := a.store.Current()
	if !ok {
		return ignored(), ErrNoBoard
	}
	who := a.principal(m.As)
	if who == "" || who != board.Host {
		return ignored(), nil
	}

	board.BackgroundImage = m.Image
	board.BackgroundSize = m.Size
	if m.Image != "" && m.Size == "" {
		board.BackgroundSize = schema.BackgroundCover
	}
	return a.commit(ctx, board), nil
}

func (a *App) login(ctx context.Context, name string) (Result, error) {
	user, ok := schema.NewUser(name)
	if !ok {
		return ignored(), fmt.Errorf("%w: name is required", ErrInvalid)
	}
	a.mu.Lock()
	a.state.user, a.state.loggedIn = user, true
	a.mu.Unlock()

	if err := a.prefs.SaveUser(ctx, user); err != nil {
		a.logger.WarnContext(ctx, "could not store user, keeping session in memory", "error", err)
	}
	return Result{Applied: true, User: &user}, nil
}

func (a *App) setLanguage(ctx context.Context, code string) (Result, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !a.tr.Supported(code) {
		return ignored(), fmt.Errorf("%w: unsupported language %q", ErrInvalid, code)
	}
	a.mu.Lock()
	a.state.language = code
	a.mu.Unlock()

	if err := a.prefs.SaveLanguage(ctx, code); err != nil {
		a.logger.WarnContext(ctx, "could not store language", "error", err)
	}
	return Result{Applied: true}, nil
}

// Convenience wrappers for the item operations.

func (a *App) AddItem(ctx context.Context, t schema.ItemType, content, color, textColor string) (Result, error) {
	return a.Dispatch(ctx, AddItem{Type: t, Content: content, Color: color, TextColor: textColor})
}

func (a *App) DeleteItem(ctx context.Context, itemID string) (Result, error) {
	return a.Dispatch(ctx, DeleteItem{ItemID: itemID})
}

func (a *App) ChangeLayer(ctx context.Context, itemID string, dir Layer) (Result, error) {
	return a.Dispatch(ctx, ChangeLayer{ItemID: itemID, Direction: dir})
}

func (a *App) BeginDrag(ctx context.Context, itemID string, p interaction.Point) (Result, error) {
	return a.Dispatch(ctx, BeginDrag{ItemID: itemID, Pointer: p})
}

func (a *App) BeginResize(ctx context.Context, itemID string, p interaction.Point) (Result, error) {
	return a.Dispatch(ctx, BeginResize{ItemID: itemID, Pointer: p})
}

func (a *App) Move(ctx context.Context, p interaction.Point) (Result, error) {
	return a.Dispatch(ctx, PointerMove{Pointer: p})
}

func (a *App) Release(ctx context.Context) (Result, error) {
	return a.Dispatch(ctx, Release{})
}
