package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/celerix-dev/celerix-canvas/internal/app"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

func newApp(t *testing.T, user string) *app.App {
	t.Helper()
	backend, err := engine.NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("persistence: %v", err)
	}
	a := app.New(app.Options{Backend: backend})
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	go a.Run(ctx)
	t.Cleanup(func() {
		cancel()
		a.Close()
	})
	if user != "" {
		if _, err := a.Dispatch(ctx, app.Login{Name: user}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return a
}

func startRouter(t *testing.T, router *Router) string {
	t.Helper()
	go router.Listen("0")

	// Wait a bit for listener to be set
	var port string
	for i := 0; i < 20; i++ {
		time.Sleep(50 * time.Millisecond)
		router.mu.Lock()
		if router.listener != nil {
			port = fmt.Sprintf("%d", router.listener.Addr().(*net.TCPAddr).Port)
			router.mu.Unlock()
			break
		}
		router.mu.Unlock()
	}
	if port == "" {
		t.Fatalf("Server did not start in time")
	}
	t.Cleanup(func() { router.Stop() })
	return port
}

func TestRouter_TCP_Commands(t *testing.T) {
	a := newApp(t, "alice")
	port := startRouter(t, NewRouter(a, nil))

	conn, err := net.Dial("tcp", "127.0.0.1:"+port)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	fmt.Fprintf(conn, "PING\n")
	line, _ := reader.ReadString('\n')
	if line != "PONG\n" {
		t.Errorf("Expected PONG, got %q", line)
	}

	fmt.Fprintf(conn, "LIST\n")
	line, _ = reader.ReadString('\n')
	if line != "OK []\n" {
		t.Errorf("Expected empty list, got %q", line)
	}

	board := schema.Board{ID: "b1", Topic: "Retro", Host: "alice", Items: []schema.CanvasItem{}}
	raw, _ := json.Marshal(board)
	fmt.Fprintf(conn, "PUT %s\n", raw)
	line, _ = reader.ReadString('\n')
	if line != "OK\n" {
		t.Errorf("Expected OK, got %q", line)
	}

	fmt.Fprintf(conn, "GET b1\n")
	line, _ = reader.ReadString('\n')
	var got schema.Board
	if !strings.HasPrefix(line, "OK ") {
		t.Fatalf("Expected OK board, got %q", line)
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "OK ")), &got); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if got.Topic != "Retro" || got.Host != "alice" {
		t.Errorf("unexpected board %+v", got)
	}

	fmt.Fprintf(conn, "CURRENT\n")
	line, _ = reader.ReadString('\n')
	if line != "ERR not found\n" {
		t.Errorf("Expected ERR not found before OPEN, got %q", line)
	}

	fmt.Fprintf(conn, "OPEN b1\n")
	line, _ = reader.ReadString('\n')
	if !strings.HasPrefix(line, "OK {") {
		t.Errorf("Expected opened board, got %q", line)
	}
	if cur, ok := a.Current(); !ok || cur.ID != "b1" {
		t.Errorf("app did not open b1: %+v %v", cur, ok)
	}

	fmt.Fprintf(conn, "DEL b1\n")
	line, _ = reader.ReadString('\n')
	if line != "OK {\"applied\":true}\n" {
		t.Errorf("Expected applied delete, got %q", line)
	}

	fmt.Fprintf(conn, "GET b1\n")
	line, _ = reader.ReadString('\n')
	if !strings.HasPrefix(line, "ERR") {
		t.Errorf("Expected ERR, got %q", line)
	}
}

func TestRouter_DeleteRequiresHost(t *testing.T) {
	a := newApp(t, "bob")
	if err := a.PutBoard(schema.Board{ID: "b1", Topic: "t", Host: "alice"}); err != nil {
		t.Fatal(err)
	}
	port := startRouter(t, NewRouter(a, nil))

	conn, err := net.Dial("tcp", "127.0.0.1:"+port)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	fmt.Fprintf(conn, "DEL b1\n")
	line, _ := reader.ReadString('\n')
	if line != "OK {\"applied\":false}\n" {
		t.Errorf("Expected refused delete, got %q", line)
	}
	if _, ok := a.Board("b1"); !ok {
		t.Error("board deleted by a non-host")
	}

	fmt.Fprintf(conn, "DEL missing\n")
	line, _ = reader.ReadString('\n')
	if line != "ERR not found\n" {
		t.Errorf("Expected ERR not found, got %q", line)
	}
}

func TestRouter_ConcurrentConnections(t *testing.T) {
	port := startRouter(t, NewRouter(newApp(t, ""), nil))

	conns := make([]net.Conn, 0)
	for i := 0; i < MaxConnections+10; i++ {
		conn, err := net.DialTimeout("tcp", "127.0.0.1:"+port, 100*time.Millisecond)
		if err == nil {
			conns = append(conns, conn)
		}
	}
	for _, c := range conns {
		c.Close()
	}
}

func TestRouter_MalformedCommands(t *testing.T) {
	port := startRouter(t, NewRouter(newApp(t, ""), nil))

	conn, err := net.Dial("tcp", "127.0.0.1:"+port)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	fmt.Fprintf(conn, "GET\n")
	fmt.Fprintf(conn, "PUT {invalid}\n")
	fmt.Fprintf(conn, "PUT {\"topic\":\"no id\"}\n")
	fmt.Fprintf(conn, "FROB\n")
	fmt.Fprintf(conn, "PING\n")

	want := []string{
		"ERR usage: GET <id>\n",
		"ERR invalid json value\n",
		"ERR board has no id\n",
		"ERR unknown command FROB\n",
		"PONG\n",
	}
	for _, w := range want {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
		if line != w {
			t.Errorf("Expected %q, got %q", w, line)
		}
	}
}

func TestRouter_StopBeforeListen(t *testing.T) {
	router := NewRouter(newApp(t, ""), nil)
	if err := router.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := router.Listen("0"); err == nil {
		t.Error("Listen after Stop should fail")
	}
}
