package app

import (
	"context"
	"strings"
)

// Fragment is the location fragment that deep-links to a board.
func Fragment(boardID string) string {
	if boardID == "" {
		return ""
	}
	return "#" + boardID
}

// ParseFragment extracts the board id from "#<id>" or a full URL ending in one.
func ParseFragment(s string) string {
	if i := strings.LastIndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// OpenFromFragment opens the board a fragment points at and returns the
// fragment to show. An unresolvable fragment leaves no board open and yields "".
func (a *App) OpenFromFragment(ctx context.Context, fragment string) (string, error) {
	id := ParseFragment(fragment)
	res, err := a.Dispatch(ctx, OpenBoard{ID: id})
	if err != nil {
		return "", err
	}
	if !res.Applied {
		return "", nil
	}
	return Fragment(id), nil
}
