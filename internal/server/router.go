// Package server exposes a board store over a line-oriented TCP protocol.
//
//	PING                -> PONG
//	LIST                -> OK [boards]
//	GET <id>            -> OK board
//	PUT <board json>    -> OK
//	OPEN <id>           -> OK board
//	CURRENT             -> OK board
//	DEL <id>            -> OK {"applied":bool}
//	QUIT
//
// Failures reply "ERR <message>".
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
	"github.com/celerix-dev/celerix-canvas/pkg/sdk"
)

// MaxConnections caps concurrently served clients.
const MaxConnections = 100

// maxLine bounds one command; boards travel whole, images included.
const maxLine = 32 << 20

type Router struct {
	store  sdk.Store
	cert   *tls.Certificate
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(s sdk.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: s, logger: logger}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address once Listen is running.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		listener.Close()
		return net.ErrClosed
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, MaxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			r.logger.Warn("accept failed", "error", err)
			continue
		}

		// Idle clients are dropped eventually.
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener; Listen returns nil afterwards.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.listener != nil {
		return r.listener.Close()
	}
	return nil
}

func reply(conn net.Conn, v any) {
	if v == nil {
		fmt.Fprintln(conn, "OK")
		return
	}
	res, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(conn, "ERR internal error")
		return
	}
	fmt.Fprintln(conn, "OK", string(res))
}

func replyErr(conn net.Conn, err error) {
	// Replies are single lines.
	fmt.Fprintln(conn, "ERR", strings.ReplaceAll(err.Error(), "\n", " "))
}

// HandleConnection serves commands from conn until QUIT, EOF or an idle timeout.
func (r *Router) HandleConnection(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				r.logger.Debug("connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		command, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToUpper(command) {
		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "LIST":
			boards, err := r.store.ListBoards()
			if err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, boards)

		case "GET":
			if arg == "" {
				fmt.Fprintln(conn, "ERR usage: GET <id>")
				continue
			}
			b, err := r.store.GetBoard(arg)
			if err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, b)

		case "PUT":
			var b schema.Board
			if err := json.Unmarshal([]byte(arg), &b); err != nil {
				fmt.Fprintln(conn, "ERR invalid json value")
				continue
			}
			if b.ID == "" {
				fmt.Fprintln(conn, "ERR board has no id")
				continue
			}
			if err := r.store.PutBoard(b); err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, nil)

		case "OPEN":
			b, err := r.store.Open(arg)
			if err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, b)

		case "CURRENT":
			b, err := r.store.CurrentBoard()
			if err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, b)

		case "DEL":
			if arg == "" {
				fmt.Fprintln(conn, "ERR usage: DEL <id>")
				continue
			}
			applied, err := r.store.DeleteBoard(arg)
			if err != nil {
				replyErr(conn, err)
				continue
			}
			reply(conn, map[string]bool{"applied": applied})

		case "QUIT":
			return

		default:
			fmt.Fprintf(conn, "ERR unknown command %s\n", command)
		}
	}
}
