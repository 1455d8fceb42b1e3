package sdk

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/celerix-dev/celerix-canvas/internal/app"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
)

// ClosableStore is a Store that holds a connection or a running controller.
type ClosableStore interface {
	Store
	io.Closer
}

// New initializes the store based on the environment.
// It returns the interface, so the caller doesn't care if it's local or remote.
func New(dataDir string) (ClosableStore, error) {
	if remoteAddr := os.Getenv("CANVAS_STORE_ADDR"); remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
		slog.Warn("canvas daemon unreachable, using embedded store", "addr", remoteAddr, "error", err)
	}

	// Embedded mode runs the same controller the daemon runs, inside this process.
	p, err := engine.NewFilePersistence(dataDir)
	if err != nil {
		return nil, err
	}
	a := app.New(app.Options{Backend: p})
	if err := a.Init(context.Background()); err != nil {
		return nil, err
	}
	go a.Run(context.Background())
	return a, nil
}
