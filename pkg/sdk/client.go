// Package sdk provides the client-side library for reading and writing canvas boards.
// It supports both remote connections via TCP/TLS and local embedded mode.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// Client is a remote client for a canvasd daemon.
// It implements the Store interface.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// Connect establishes a TLS-encrypted connection to a remote canvas daemon.
// If CANVAS_DISABLE_TLS is set to "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if os.Getenv("CANVAS_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, 64*1024)
	return nil
}

// remoteError turns an ERR reply into an error, keeping ErrBoardNotFound matchable.
func remoteError(msg string) error {
	if msg == ErrBoardNotFound.Error() {
		return ErrBoardNotFound
	}
	return errors.New(msg)
}

// Internal helper for TCP communication
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	var resp string

	// Try up to 3 times with exponential backoff
	for i := 0; i < 3; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		_, err = fmt.Fprint(c.conn, cmd+"\n")
		if err == nil {
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", remoteError(strings.TrimSpace(strings.TrimPrefix(resp, "ERR")))
				}
				return resp, nil
			}
		}

		slog.Warn("canvas sdk request failed, reconnecting", "attempt", i+1, "error", err)

		// Force a reconnect on the next iteration
		if closeErr := c.reconnect(); closeErr != nil {
			slog.Warn("canvas sdk reconnect failed", "error", closeErr)
		}

		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %v", err)
}

func decodeReply[T any](resp string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(strings.TrimPrefix(resp, "OK ")), &out)
	return out, err
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected reply %q", resp)
	}
	return nil
}

func (c *Client) ListBoards() ([]schema.Board, error) {
	resp, err := c.sendAndReceive("LIST")
	if err != nil {
		return nil, err
	}
	return decodeReply[[]schema.Board](resp)
}

func (c *Client) GetBoard(id string) (schema.Board, error) {
	resp, err := c.sendAndReceive("GET " + id)
	if err != nil {
		return schema.Board{}, err
	}
	return decodeReply[schema.Board](resp)
}

func (c *Client) PutBoard(board schema.Board) error {
	jsonData, err := json.Marshal(board)
	if err != nil {
		return err
	}
	_, err = c.sendAndReceive("PUT " + string(jsonData))
	return err
}

func (c *Client) DeleteBoard(id string) (bool, error) {
	resp, err := c.sendAndReceive("DEL " + id)
	if err != nil {
		return false, err
	}
	out, err := decodeReply[struct {
		Applied bool `json:"applied"`
	}](resp)
	return out.Applied, err
}

func (c *Client) Open(id string) (schema.Board, error) {
	resp, err := c.sendAndReceive("OPEN " + id)
	if err != nil {
		return schema.Board{}, err
	}
	return decodeReply[schema.Board](resp)
}

func (c *Client) CurrentBoard() (schema.Board, error) {
	resp, err := c.sendAndReceive("CURRENT")
	if err != nil {
		return schema.Board{}, err
	}
	return decodeReply[schema.Board](resp)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

// --- Helpers ---

// Items returns the items of a board in z-order, optionally only those of the given types.
func Items(r BoardReader, boardID string, types ...schema.ItemType) ([]schema.CanvasItem, error) {
	b, err := r.GetBoard(boardID)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return b.Items, nil
	}
	out := make([]schema.CanvasItem, 0, len(b.Items))
	for _, it := range b.Items {
		if slices.Contains(types, it.Type) {
			out = append(out, it)
		}
	}
	return out, nil
}

// HostedBy lists the boards whose host is name.
func HostedBy(r BoardReader, name string) ([]schema.Board, error) {
	boards, err := r.ListBoards()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(boards, func(b schema.Board) bool { return b.Host != name }), nil
}
