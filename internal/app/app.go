// Package app is the canvas controller. It owns one observer's state and
// applies every mutation as a message on a single dispatcher goroutine.
package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-canvas/internal/broadcast"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/internal/i18n"
	"github.com/celerix-dev/celerix-canvas/internal/interaction"
	"github.com/celerix-dev/celerix-canvas/internal/sticker"
	"github.com/celerix-dev/celerix-canvas/internal/vault"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

var (
	ErrNoUser  = errors.New("no user logged in")
	ErrNoBoard = errors.New("no board open")
	ErrClosed  = errors.New("controller closed")
	// ErrInvalid wraps rejected input such as an unknown item type or locale.
	ErrInvalid = errors.New("invalid request")
)

// DefaultVaultSeed derives the credential key when none is configured.
const DefaultVaultSeed = "celerix-canvas"

// DefaultViewport is the assumed viewport center until SetViewport is applied.
var DefaultViewport = interaction.Point{X: 400, Y: 300}

const (
	placementJitter = 75.0
	rotationJitter  = 10.0
)

// Options wires an App. Only Backend may be nil (memory only); every other
// nil field gets a working default.
type Options struct {
	Backend    engine.Backend
	Prefs      *engine.Preferences
	Channel    broadcast.Channel
	Generator  sticker.Generator
	Translator *i18n.Translator
	Logger     *slog.Logger
	Rand       *rand.Rand
	Now        func() time.Time
}

// state is everything an observer knows besides its boards.
type state struct {
	user     schema.User
	loggedIn bool
	language string
	viewport interaction.Point
}

type request struct {
	ctx   context.Context
	msg   Message
	reply chan reply
}

type reply struct {
	res Result
	err error
}

// App is the controller for one observer.
type App struct {
	backend engine.Backend
	store   *engine.BoardStore
	prefs   *engine.Preferences
	channel broadcast.Channel
	machine *interaction.Machine
	gen     sticker.Generator
	tr      *i18n.Translator
	logger  *slog.Logger
	rng     *rand.Rand
	now     func() time.Time

	mu    sync.RWMutex
	state state

	requests    chan request
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

// New builds a controller. Call Init before Run.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefs := opts.Prefs
	if prefs == nil {
		prefs = engine.NewPreferences(opts.Backend, vault.DeriveKey(DefaultVaultSeed), logger)
	}
	channel := opts.Channel
	if channel == nil {
		channel = broadcast.Noop{}
	}
	gen := opts.Generator
	if gen == nil {
		gen = sticker.Disabled{}
	}
	tr := opts.Translator
	if tr == nil {
		tr = i18n.MustNew()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		backend:  opts.Backend,
		store:    engine.NewBoardStore(nil, opts.Backend, logger),
		prefs:    prefs,
		channel:  channel,
		machine:  interaction.New(),
		gen:      gen,
		tr:       tr,
		logger:   logger,
		rng:      rng,
		now:      now,
		state:    state{language: i18n.DefaultLocale, viewport: DefaultViewport},
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

// Init loads boards and preferences from durable storage and starts listening
// to other observers. Missing or corrupt records fall back to defaults.
func (a *App) Init(ctx context.Context) error {
	select {
	case <-a.done:
		return ErrClosed
	default:
	}

	boards := engine.LoadBoards(ctx, a.backend, a.logger)
	a.store = engine.NewBoardStore(boards, a.backend, a.logger)

	user, loggedIn := a.prefs.User(ctx)
	lang := a.prefs.Language(ctx)
	if !a.tr.Supported(lang) {
		lang = i18n.DefaultLocale
	}

	a.mu.Lock()
	a.state.user, a.state.loggedIn = user, loggedIn
	a.state.language = lang
	a.mu.Unlock()

	a.unsubscribe = a.channel.Subscribe(a.receive)
	a.logger.InfoContext(ctx, "controller initialized", "boards", len(boards), "logged_in", loggedIn, "language", lang)
	return nil
}

// receive turns a snapshot from another observer into a message.
func (a *App) receive(b schema.Board) {
	if _, err := a.Dispatch(context.Background(), RemoteSnapshot{Board: b}); err != nil && !errors.Is(err, ErrClosed) {
		a.logger.Warn("dropping remote snapshot", "board", b.ID, "error", err)
	}
}

// Run applies messages one at a time until ctx is done or Close is called.
func (a *App) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			return nil
		case req := <-a.requests:
			res, err := a.Apply(req.ctx, req.msg)
			req.reply <- reply{res: res, err: err}
		}
	}
}

// Dispatch hands msg to the dispatcher and waits for the result.
func (a *App) Dispatch(ctx context.Context, msg Message) (Result, error) {
	req := request{ctx: ctx, msg: msg, reply: make(chan reply, 1)}
	select {
	case a.requests <- req:
	case <-a.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-a.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the dispatcher, detaches from the channel and waits for pending
// board writes.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		err = a.channel.Close()
		a.store.Wait()
	})
	return err
}

// Wait blocks until queued board writes have landed.
func (a *App) Wait() {
	a.store.Wait()
}

// --- read side; safe from any goroutine ---

func (a *App) Boards() []schema.Board {
	return a.store.Boards()
}

func (a *App) Board(id string) (schema.Board, bool) {
	return a.store.Get(id)
}

// Current returns the open board.
func (a *App) Current() (schema.Board, bool) {
	return a.store.Current()
}

func (a *App) User() (schema.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.user, a.state.loggedIn
}

func (a *App) Language() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.language
}

func (a *App) Viewport() interaction.Point {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.viewport
}

// Gesture reports the interaction in progress and the live item, if any.
func (a *App) Gesture() (interaction.State, schema.CanvasItem, bool) {
	item, ok := a.machine.Live()
	return a.machine.State(), item, ok
}

// T translates key into the active language.
func (a *App) T(key string) string {
	return a.tr.T(a.Language(), key)
}

// Translator exposes the table for callers that pick their own locale.
func (a *App) Translator() *i18n.Translator {
	return a.tr
}

// SetCredential stores the sticker-service credential sealed.
func (a *App) SetCredential(ctx context.Context, secret string) error {
	if secret == "" {
		return a.prefs.ClearCredential(ctx)
	}
	return a.prefs.SaveCredential(ctx, secret)
}

func (a *App) ClearCredential(ctx context.Context) error {
	return a.prefs.ClearCredential(ctx)
}
