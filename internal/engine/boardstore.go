package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// BoardStore is the in-memory list of known boards plus the currently open one.
// Every mutation is mirrored to the backend in the background; a failed write is
// logged and dropped, and memory stays authoritative for the session.
type BoardStore struct {
	mu      sync.RWMutex
	boards  []schema.Board
	current string

	backend Backend
	logger  *slog.Logger
	wg      sync.WaitGroup

	// writeMu orders background writes; seq/written keep an older snapshot
	// from landing on disk after a newer one.
	writeMu sync.Mutex
	seq     uint64
	written uint64
}

// NewBoardStore initializes a store.
// It accepts existing boards (from LoadBoards) and an optional backend.
func NewBoardStore(initial []schema.Board, backend Backend, logger *slog.Logger) *BoardStore {
	if logger == nil {
		logger = slog.Default()
	}
	boards := make([]schema.Board, 0, len(initial))
	for _, b := range initial {
		boards = append(boards, b.Clone())
	}
	return &BoardStore{
		boards:  boards,
		backend: backend,
		logger:  logger,
	}
}

// LoadBoards reads the board list from backend. Missing or malformed data yields
// an empty list; it never fails.
func LoadBoards(ctx context.Context, backend Backend, logger *slog.Logger) []schema.Board {
	if backend == nil {
		return []schema.Board{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := backend.Read(ctx, KeyBoards)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WarnContext(ctx, "could not read boards, starting empty", "error", err)
		}
		return []schema.Board{}
	}

	boards, ok := schema.DecodeRecord[[]schema.Board](raw)
	if !ok {
		logger.WarnContext(ctx, "stored boards are malformed, starting empty", "bytes", len(raw))
		return []schema.Board{}
	}
	if boards == nil {
		boards = []schema.Board{}
	}
	return boards
}

// LoadAll deserializes the durable mirror this store writes to.
func (s *BoardStore) LoadAll(ctx context.Context) []schema.Board {
	return LoadBoards(ctx, s.backend, s.logger)
}

// Wait waits for all background persistence tasks to complete.
func (s *BoardStore) Wait() {
	s.wg.Wait()
}

// UpsertBoard replaces the board with the same id in place, or appends it.
func (s *BoardStore) UpsertBoard(board schema.Board) {
	board = board.Clone()

	s.mu.Lock()
	replaced := false
	for i := range s.boards {
		if s.boards[i].ID == board.ID {
			s.boards[i] = board
			replaced = true
			break
		}
	}
	if !replaced {
		s.boards = append(s.boards, board)
	}
	snapshot, seq := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot, seq)
}

// DeleteBoard removes a board by id and clears the selection if it was open.
func (s *BoardStore) DeleteBoard(id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.boards = append(s.boards[:idx], s.boards[idx+1:]...)
	if s.current == id {
		s.current = ""
	}
	snapshot, seq := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot, seq)
	return nil
}

// SetCurrent opens the board with the given id. An empty id closes the current
// board. An unknown id also clears the selection and reports false.
func (s *BoardStore) SetCurrent(id string) (schema.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if id == "" || idx < 0 {
		s.current = ""
		return schema.Board{}, false
	}
	s.current = id
	return s.boards[idx].Clone(), true
}

// Current returns the open board. It reports false when nothing is open or the
// open board has since been removed.
func (s *BoardStore) Current() (schema.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(s.current)
	if s.current == "" || idx < 0 {
		return schema.Board{}, false
	}
	return s.boards[idx].Clone(), true
}

// CurrentID returns the id of the open board, or "".
func (s *BoardStore) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Get returns a copy of the board with the given id.
func (s *BoardStore) Get(id string) (schema.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return schema.Board{}, false
	}
	return s.boards[idx].Clone(), true
}

// Boards returns a deep copy of every known board in insertion order.
func (s *BoardStore) Boards() []schema.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]schema.Board, len(s.boards))
	for i, b := range s.boards {
		list[i] = b.Clone()
	}
	return list
}

// Len returns the number of known boards.
func (s *BoardStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

// ListBoards and PutBoard let a store act as a Migrate source or sink.

func (s *BoardStore) ListBoards() ([]schema.Board, error) {
	return s.Boards(), nil
}

func (s *BoardStore) PutBoard(board schema.Board) error {
	if board.ID == "" {
		return ErrInvalidKey
	}
	s.UpsertBoard(board)
	return nil
}

// indexLocked MUST be called while holding s.mu.
func (s *BoardStore) indexLocked(id string) int {
	for i := range s.boards {
		if s.boards[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked copies the board list for a background write.
// It MUST be called while holding s.mu.Lock.
func (s *BoardStore) snapshotLocked() ([]schema.Board, uint64) {
	list := make([]schema.Board, len(s.boards))
	for i, b := range s.boards {
		list[i] = b.Clone()
	}
	s.seq++
	return list, s.seq
}

func (s *BoardStore) persist(boards []schema.Board, seq uint64) {
	if s.backend == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if seq <= s.written {
			return
		}
		s.written = seq

		data, err := schema.EncodeRecord(boards)
		if err != nil {
			s.logger.Error("could not encode boards", "error", err)
			return
		}
		if err := s.backend.Write(context.Background(), KeyBoards, data); err != nil {
			s.logger.Warn("board write failed, keeping in-memory state", "error", err, "boards", len(boards))
		}
	}()
}
