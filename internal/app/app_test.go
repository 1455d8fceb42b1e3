package app

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/celerix-dev/celerix-canvas/internal/broadcast"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/internal/interaction"
	"github.com/celerix-dev/celerix-canvas/internal/sticker"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func startApp(t *testing.T, opts Options) *App {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	a := New(opts)
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	t.Cleanup(func() {
		cancel()
		a.Close()
	})
	return a
}

func mustDispatch(t *testing.T, a *App, msg Message) Result {
	t.Helper()
	res, err := a.Dispatch(context.Background(), msg)
	if err != nil {
		t.Fatalf("Dispatch(%T) failed: %v", msg, err)
	}
	return res
}

// boardWithAnn logs Ann in and opens a fresh board hosted by her.
func boardWithAnn(t *testing.T, a *App) schema.Board {
	t.Helper()
	mustDispatch(t, a, Login{Name: "Ann"})
	res := mustDispatch(t, a, CreateBoard{Topic: "Retro"})
	return *res.Board
}

func current(t *testing.T, a *App) schema.Board {
	t.Helper()
	b, ok := a.Current()
	if !ok {
		t.Fatal("Expected a board to be open")
	}
	return b
}

func TestAddTextItemScenario(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)

	res, err := a.AddItem(context.Background(), schema.ItemText, "hi", "", "")
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	b := current(t, a)
	if len(b.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(b.Items))
	}
	it := b.Items[0]
	if it.Type != schema.ItemText || it.Author != "Ann" || it.Content != "hi" {
		t.Errorf("Unexpected item %+v", it)
	}
	if it.Width == nil || *it.Width != 250 || it.Height != nil {
		t.Errorf("Expected 250 x auto, got %v x %v", it.Width, it.Height)
	}
	if !it.CreatedAt.Equal(fixedNow) {
		t.Errorf("Expected createdAt from the clock, got %v", it.CreatedAt)
	}

	if _, err := a.ChangeLayer(context.Background(), res.Item.ID, Front); err != nil {
		t.Fatalf("ChangeLayer failed: %v", err)
	}
	after := current(t, a)
	if len(after.Items) != 1 || after.Items[0].ID != it.ID {
		t.Errorf("Layer change altered membership: %+v", after.Items)
	}
}

func TestAddItemPlacement(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)
	mustDispatch(t, a, SetViewport{Center: interaction.Point{X: 1000, Y: 500}})

	for i := 0; i < 40; i++ {
		mustDispatch(t, a, AddItem{Type: schema.ItemEmoji, Content: "🎉"})
	}
	for _, it := range current(t, a).Items {
		if it.X < 925 || it.X > 1075 || it.Y < 425 || it.Y > 575 {
			t.Errorf("Item placed outside the jitter box: (%v, %v)", it.X, it.Y)
		}
		if it.Rotation < -10 || it.Rotation > 10 {
			t.Errorf("Rotation out of range: %v", it.Rotation)
		}
		if *it.Width != 100 || *it.Height != 100 {
			t.Errorf("Expected 100x100 emoji, got %vx%v", *it.Width, *it.Height)
		}
	}

	res := mustDispatch(t, a, AddItem{Type: schema.ItemImage, Content: "data:image/png;base64,AA"})
	if *res.Item.Width != 200 || *res.Item.Height != 200 {
		t.Errorf("Expected 200x200 image, got %vx%v", *res.Item.Width, *res.Item.Height)
	}
}

func TestAddItemPreconditions(t *testing.T) {
	a := startApp(t, Options{})

	if _, err := a.AddItem(context.Background(), schema.ItemText, "hi", "", ""); !errors.Is(err, ErrNoUser) {
		t.Errorf("Expected ErrNoUser, got %v", err)
	}
	mustDispatch(t, a, Login{Name: "Ann"})
	if _, err := a.AddItem(context.Background(), schema.ItemText, "hi", "", ""); !errors.Is(err, ErrNoBoard) {
		t.Errorf("Expected ErrNoBoard, got %v", err)
	}
	mustDispatch(t, a, CreateBoard{Topic: "x"})
	if _, err := a.AddItem(context.Background(), "VIDEO", "hi", "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

func TestChangeLayer(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)

	var ids []string
	for i := 0; i < 3; i++ {
		res := mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "n"})
		ids = append(ids, res.Item.ID)
	}
	order := func() []string {
		var out []string
		for _, it := range current(t, a).Items {
			out = append(out, it.ID)
		}
		return out
	}

	mustDispatch(t, a, ChangeLayer{ItemID: ids[0], Direction: Front})
	if got := order(); !reflect.DeepEqual(got, []string{ids[1], ids[2], ids[0]}) {
		t.Errorf("Front: got %v", got)
	}

	mustDispatch(t, a, ChangeLayer{ItemID: ids[2], Direction: Back})
	if got := order(); !reflect.DeepEqual(got, []string{ids[2], ids[1], ids[0]}) {
		t.Errorf("Back: got %v", got)
	}

	res := mustDispatch(t, a, ChangeLayer{ItemID: "nope", Direction: Front})
	if res.Applied {
		t.Error("Unknown item should be a no-op")
	}
	if got := order(); len(got) != 3 {
		t.Errorf("Length changed: %v", got)
	}

	if _, err := a.Dispatch(context.Background(), ChangeLayer{ItemID: ids[0], Direction: "up"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for a bad direction, got %v", err)
	}
}

func TestUnauthorizedUserCannotTouchItem(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)
	res := mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "Ann's note"})
	before := current(t, a)

	if r := mustDispatch(t, a, BeginDrag{ItemID: res.Item.ID, As: "Bob"}); r.Applied {
		t.Fatal("Bob should not be able to drag Ann's note")
	}
	mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: 300, Y: 300}})
	mustDispatch(t, a, Release{})

	if r := mustDispatch(t, a, BeginResize{ItemID: res.Item.ID, As: "Bob"}); r.Applied {
		t.Fatal("Bob should not be able to resize Ann's note")
	}
	if r := mustDispatch(t, a, DeleteItem{ItemID: res.Item.ID, As: "Bob"}); r.Applied {
		t.Fatal("Bob should not be able to delete Ann's note")
	}
	mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "Ann 2"})
	if r := mustDispatch(t, a, ChangeLayer{ItemID: res.Item.ID, Direction: Front, As: "Bob"}); r.Applied {
		t.Fatal("Bob should not be able to reorder Ann's note")
	}

	after := current(t, a)
	if !reflect.DeepEqual(after.Items[0], before.Items[0]) {
		t.Errorf("Ann's note changed: %+v", after.Items[0])
	}
}

func TestHostCanEditOthersItems(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)

	bob := mustDispatch(t, a, AddItem{Type: schema.ItemEmoji, Content: "👍", As: "Bob"})
	if bob.Item.Author != "Bob" {
		t.Fatalf("Expected Bob as author, got %q", bob.Item.Author)
	}
	if r := mustDispatch(t, a, BeginDrag{ItemID: bob.Item.ID, As: "Bob"}); !r.Applied {
		t.Fatal("Author should be able to drag")
	}
	mustDispatch(t, a, CancelGesture{})

	if r := mustDispatch(t, a, DeleteItem{ItemID: bob.Item.ID}); !r.Applied {
		t.Fatal("Host should be able to delete any item")
	}
	if n := len(current(t, a).Items); n != 0 {
		t.Errorf("Expected empty board, got %d items", n)
	}
	if r := mustDispatch(t, a, DeleteItem{ItemID: bob.Item.ID}); r.Applied {
		t.Error("Deleting a missing item should be a no-op")
	}
}

func TestDragCommitsExactDelta(t *testing.T) {
	hub := broadcast.NewHub(0, nil)
	a := startApp(t, Options{Channel: hub.Join("a")})
	b := startApp(t, Options{Channel: hub.Join("b")})

	boardWithAnn(t, a)
	res := mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "move me"})
	x0, y0 := res.Item.X, res.Item.Y

	mustDispatch(t, a, BeginDrag{ItemID: res.Item.ID, Pointer: interaction.Point{X: 50, Y: 50}})
	for i := 0; i < 25; i++ {
		mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: 50 + float64(i), Y: 50 - float64(i)}})
	}
	mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: 80, Y: 10}})
	rel := mustDispatch(t, a, Release{})
	if !rel.Applied {
		t.Fatal("Release should commit")
	}

	got, _ := current(t, a).Item(res.Item.ID)
	if got.X != x0+30 || got.Y != y0-40 {
		t.Errorf("Expected (%v, %v), got (%v, %v)", x0+30, y0-40, got.X, got.Y)
	}

	hub.Settle()
	remote, ok := b.Board(current(t, a).ID)
	if !ok {
		t.Fatal("Other observer never received the board")
	}
	if it, _ := remote.Item(res.Item.ID); it.X != got.X || it.Y != got.Y {
		t.Errorf("Other observer has (%v, %v)", it.X, it.Y)
	}
}

func TestResizeEmojiThroughController(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)
	res := mustDispatch(t, a, AddItem{Type: schema.ItemEmoji, Content: "🔥"})

	mustDispatch(t, a, BeginResize{ItemID: res.Item.ID, Pointer: interaction.Point{X: 10, Y: 10}})
	live := mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: 30, Y: -50}})
	if *live.Item.Width != 120 || *live.Item.Height != 50 {
		t.Errorf("Expected 120x50, got %vx%v", *live.Item.Width, *live.Item.Height)
	}
	mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: -1000, Y: -1000}})
	mustDispatch(t, a, Release{})

	it, _ := current(t, a).Item(res.Item.ID)
	if *it.Width != 50 || *it.Height != 50 {
		t.Errorf("Expected clamp to 50x50, got %vx%v", *it.Width, *it.Height)
	}
}

func TestReleaseAfterItemVanished(t *testing.T) {
	a := startApp(t, Options{})
	board := boardWithAnn(t, a)
	res := mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "doomed"})

	mustDispatch(t, a, BeginDrag{ItemID: res.Item.ID})
	mustDispatch(t, a, PointerMove{Pointer: interaction.Point{X: 99, Y: 99}})

	// Another observer deleted the item meanwhile.
	board.Items = []schema.CanvasItem{}
	mustDispatch(t, a, RemoteSnapshot{Board: board})

	rel, err := a.Release(context.Background())
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if rel.Applied {
		t.Error("Release of a vanished item should be a no-op")
	}
	if n := len(current(t, a).Items); n != 0 {
		t.Errorf("Vanished item came back: %d items", n)
	}
	if state, _, _ := a.Gesture(); state != interaction.Idle {
		t.Errorf("Expected idle after release, got %s", state)
	}
}

func TestLastReceivedSnapshotWins(t *testing.T) {
	hub := broadcast.NewHub(0, nil)
	a := startApp(t, Options{Channel: hub.Join("a")})
	b := startApp(t, Options{Channel: hub.Join("b")})

	board := boardWithAnn(t, a)
	hub.Settle()
	if _, ok := b.Board(board.ID); !ok {
		t.Fatal("b never saw the new board")
	}

	fromA := board.Clone()
	fromA.Topic = "edited by a"
	fromB := board.Clone()
	fromB.Items = append(fromB.Items, schema.CanvasItem{ID: "b-item", Type: schema.ItemText, Author: "Bob"})

	mustDispatch(t, a, PutBoard{Board: fromA})
	hub.Settle()
	if got, _ := b.Board(board.ID); got.Topic != "edited by a" {
		t.Fatalf("b should hold a's snapshot, got %q", got.Topic)
	}

	// b's edit was built from the older board; it replaces a's wholesale.
	mustDispatch(t, b, PutBoard{Board: fromB})
	hub.Settle()

	for name, obs := range map[string]*App{"a": a, "b": b} {
		got, _ := obs.Board(board.ID)
		if got.Topic != board.Topic || len(got.Items) != 1 {
			t.Errorf("%s should converge on b's snapshot without merging, got %+v", name, got)
		}
	}
}

func TestRemoteSnapshotForUnknownBoardAppends(t *testing.T) {
	a := startApp(t, Options{})
	mustDispatch(t, a, RemoteSnapshot{Board: schema.Board{ID: "remote", Topic: "from afar", Host: "Zed"}})

	if len(a.Boards()) != 1 {
		t.Fatalf("Expected the remote board to be appended, got %d boards", len(a.Boards()))
	}
	if r := mustDispatch(t, a, RemoteSnapshot{}); r.Applied {
		t.Error("Snapshot without id should be ignored")
	}
}

func TestOpenFromFragment(t *testing.T) {
	a := startApp(t, Options{})
	board := boardWithAnn(t, a)
	mustDispatch(t, a, CloseBoard{})

	frag, err := a.OpenFromFragment(context.Background(), "https://canvas.example/#"+board.ID)
	if err != nil {
		t.Fatalf("OpenFromFragment failed: %v", err)
	}
	if frag != Fragment(board.ID) {
		t.Errorf("Expected %q, got %q", Fragment(board.ID), frag)
	}

	frag, err = a.OpenFromFragment(context.Background(), "#does-not-exist")
	if err != nil {
		t.Fatalf("OpenFromFragment failed: %v", err)
	}
	if frag != "" {
		t.Errorf("Expected empty fragment, got %q", frag)
	}
	if _, ok := a.Current(); ok {
		t.Error("Unresolvable fragment should leave no board open")
	}

	if ParseFragment(Fragment("abc")) != "abc" || Fragment("") != "" {
		t.Error("Fragment round trip failed")
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	backend, err := engine.NewFilePersistence(dir)
	if err != nil {
		t.Fatal(err)
	}

	a := startApp(t, Options{Backend: backend})
	board := boardWithAnn(t, a)
	mustDispatch(t, a, AddItem{Type: schema.ItemText, Content: "persist me"})
	mustDispatch(t, a, SetLanguage{Code: "ja"})
	a.Close()

	b := startApp(t, Options{Backend: backend})
	user, ok := b.User()
	if !ok || user.Name != "Ann" {
		t.Errorf("Expected Ann to stay logged in, got %+v (%v)", user, ok)
	}
	if b.Language() != "ja" {
		t.Errorf("Expected ja, got %q", b.Language())
	}
	restored, ok := b.Board(board.ID)
	if !ok || len(restored.Items) != 1 || restored.Items[0].Content != "persist me" {
		t.Errorf("Board not restored: %+v", restored)
	}
	if _, ok := b.Current(); ok {
		t.Error("No board should be open after a restart")
	}
}

func TestCorruptStorageStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	backend, _ := engine.NewFilePersistence(dir)
	for _, key := range []string{engine.KeyBoards, engine.KeyUser, engine.KeyLanguage} {
		os.WriteFile(filepath.Join(dir, key+".json"), []byte("{broken"), 0644)
	}

	a := startApp(t, Options{Backend: backend})
	if n := len(a.Boards()); n != 0 {
		t.Errorf("Expected no boards, got %d", n)
	}
	if _, ok := a.User(); ok {
		t.Error("Expected logged out")
	}
	if a.Language() != "en" {
		t.Errorf("Expected default language, got %q", a.Language())
	}
}

func TestQuotaFailureKeepsMemoryAuthoritative(t *testing.T) {
	file, _ := engine.NewFilePersistence(t.TempDir())
	a := startApp(t, Options{Backend: engine.NewQuotaBackend(file, 64)})

	boardWithAnn(t, a)
	for i := 0; i < 5; i++ {
		if _, err := a.AddItem(context.Background(), schema.ItemText, "a note that will not fit", "", ""); err != nil {
			t.Fatalf("AddItem surfaced a storage error: %v", err)
		}
	}
	a.Wait()

	if n := len(current(t, a).Items); n != 5 {
		t.Errorf("Expected 5 items in memory, got %d", n)
	}
	if len(engine.LoadBoards(context.Background(), file, nil)) != 0 {
		t.Error("Nothing should have reached storage")
	}
}

func TestBoardAdministration(t *testing.T) {
	a := startApp(t, Options{})
	board := boardWithAnn(t, a)

	if _, err := a.Dispatch(context.Background(), SetBackground{Image: "data:image/png;base64,AA", Size: "stretch"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for a bad size, got %v", err)
	}
	if r := mustDispatch(t, a, SetBackground{Image: "x", As: "Bob"}); r.Applied {
		t.Error("Only the host may change the background")
	}
	r := mustDispatch(t, a, SetBackground{Image: "data:image/png;base64,AA"})
	if !r.Applied || r.Board.BackgroundSize != schema.BackgroundCover {
		t.Errorf("Expected cover background, got %+v", r.Board)
	}

	if r := mustDispatch(t, a, DeleteBoard{ID: board.ID, As: "Bob"}); r.Applied {
		t.Error("Only the host may delete a board")
	}
	if r := mustDispatch(t, a, DeleteBoard{ID: board.ID}); !r.Applied {
		t.Error("Host should delete the board")
	}
	if _, ok := a.Current(); ok {
		t.Error("Deleting the open board should close it")
	}
}

func TestLoginLogoutAndLanguage(t *testing.T) {
	a := startApp(t, Options{})
	boardWithAnn(t, a)

	if _, err := a.Dispatch(context.Background(), Login{Name: "   "}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for a blank name, got %v", err)
	}

	mustDispatch(t, a, Logout{})
	if _, ok := a.User(); ok {
		t.Error("Expected logged out")
	}
	if len(a.Boards()) != 1 {
		t.Error("Logout must not touch boards")
	}

	mustDispatch(t, a, SetLanguage{Code: "KO"})
	if a.T("item.delete") != "삭제" {
		t.Errorf("Expected Korean text, got %q", a.T("item.delete"))
	}
	if _, err := a.Dispatch(context.Background(), SetLanguage{Code: "fr"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestGenerateSticker(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "data:image/png;base64,STICKER", nil
	})
	a := startApp(t, Options{Generator: gen})
	boardWithAnn(t, a)

	res, err := a.GenerateSticker(context.Background(), "a cat", "")
	if err != nil {
		t.Fatalf("GenerateSticker failed: %v", err)
	}
	if !res.Applied || res.Item.Type != schema.ItemSticker || res.Item.Color != schema.Transparent {
		t.Errorf("Unexpected sticker %+v", res.Item)
	}
	if *res.Item.Width != 200 || *res.Item.Height != 200 {
		t.Errorf("Expected 200x200 sticker, got %vx%v", *res.Item.Width, *res.Item.Height)
	}
}

func TestStaleStickerIsDiscarded(t *testing.T) {
	var a *App
	var other string
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		// The user switches boards while the request is in flight.
		a.Dispatch(ctx, OpenBoard{ID: other})
		return "data:image/png;base64,LATE", nil
	})
	a = startApp(t, Options{Generator: gen})

	first := boardWithAnn(t, a)
	other = mustDispatch(t, a, CreateBoard{Topic: "Other"}).Board.ID
	mustDispatch(t, a, OpenBoard{ID: first.ID})

	res, err := a.GenerateSticker(context.Background(), "a dog", "")
	if err != nil {
		t.Fatalf("GenerateSticker failed: %v", err)
	}
	if res.Applied {
		t.Error("A sticker for a board that is no longer open should be discarded")
	}
	for _, b := range a.Boards() {
		if len(b.Items) != 0 {
			t.Errorf("Board %s received the stale sticker", b.Topic)
		}
	}
}

func TestStickerFailureSurfaces(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", sticker.ErrGeneration
	})
	a := startApp(t, Options{Generator: gen})
	boardWithAnn(t, a)

	if _, err := a.GenerateSticker(context.Background(), "x", ""); !errors.Is(err, sticker.ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
	if n := len(current(t, a).Items); n != 0 {
		t.Errorf("Failed generation added %d items", n)
	}

	b := startApp(t, Options{})
	boardWithAnn(t, b)
	if _, err := b.GenerateSticker(context.Background(), "x", ""); !errors.Is(err, sticker.ErrDisabled) {
		t.Errorf("Expected ErrDisabled without a generator, got %v", err)
	}
}

func TestCredentialIsSealed(t *testing.T) {
	dir := t.TempDir()
	backend, _ := engine.NewFilePersistence(dir)
	a := startApp(t, Options{Backend: backend})

	if err := a.SetCredential(context.Background(), "sk-secret"); err != nil {
		t.Fatalf("SetCredential failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, engine.KeyCredential+".json"))
	if err != nil {
		t.Fatalf("Credential not stored: %v", err)
	}
	if bytes.Contains(raw, []byte("sk-secret")) {
		t.Error("Credential stored in clear text")
	}
	if err := a.ClearCredential(context.Background()); err != nil {
		t.Fatalf("ClearCredential failed: %v", err)
	}
}

func TestDispatchAfterClose(t *testing.T) {
	a := startApp(t, Options{})
	a.Close()
	if _, err := a.Dispatch(context.Background(), Logout{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestStoreMethods(t *testing.T) {
	a := startApp(t, Options{})
	board := boardWithAnn(t, a)

	if _, err := a.GetBoard("missing"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := a.Open("missing"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := a.CurrentBoard(); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Failed open should clear the selection, got %v", err)
	}
	opened, err := a.Open(board.ID)
	if err != nil || opened.ID != board.ID {
		t.Fatalf("Open failed: %v", err)
	}
	list, _ := a.ListBoards()
	if len(list) != 1 {
		t.Errorf("Expected 1 board, got %d", len(list))
	}
	ok, err := a.DeleteBoard(board.ID)
	if err != nil || !ok {
		t.Errorf("DeleteBoard failed: %v %v", ok, err)
	}
}
