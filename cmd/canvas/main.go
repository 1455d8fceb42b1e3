package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
	"github.com/celerix-dev/celerix-canvas/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	addr := os.Getenv("CANVAS_STORE_ADDR")
	if addr == "" {
		addr = "localhost:7001"
	}

	client, err := sdk.Connect(addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer client.Close()

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "PING":
		if err := client.Ping(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	case "LIST":
		boards, err := client.ListBoards()
		if err != nil {
			log.Fatal(err)
		}
		for _, b := range boards {
			fmt.Printf("%s\t%s\t%s\t%d items\n", b.ID, b.Host, b.Topic, len(b.Items))
		}

	case "GET":
		if len(args) < 1 {
			log.Fatal("Usage: canvas GET <boardID>")
		}
		b, err := client.GetBoard(args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(b)

	case "ITEMS":
		if len(args) < 1 {
			log.Fatal("Usage: canvas ITEMS <boardID> [TYPE...]")
		}
		var types []schema.ItemType
		for _, t := range args[1:] {
			types = append(types, schema.ItemType(strings.ToUpper(t)))
		}
		items, err := sdk.Items(client, args[0], types...)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(items)

	case "HOSTED":
		if len(args) < 1 {
			log.Fatal("Usage: canvas HOSTED <name>")
		}
		boards, err := sdk.HostedBy(client, args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(boards)

	case "OPEN":
		if len(args) < 1 {
			log.Fatal("Usage: canvas OPEN <boardID>")
		}
		b, err := client.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(b)

	case "CURRENT":
		b, err := client.CurrentBoard()
		if err != nil {
			log.Fatal(err)
		}
		printJSON(b)

	case "PUT":
		if len(args) < 1 {
			log.Fatal("Usage: canvas PUT <board.json | ->")
		}
		b, err := readBoard(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := client.PutBoard(b); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "DEL":
		if len(args) < 1 {
			log.Fatal("Usage: canvas DEL <boardID>")
		}
		applied, err := client.DeleteBoard(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if !applied {
			log.Fatal("not deleted: only the board's host may delete it")
		}
		fmt.Println("OK")

	case "PUSH", "PULL":
		if len(args) < 1 {
			log.Fatalf("Usage: canvas %s <dataDir>", command)
		}
		// The local side is always embedded, whatever CANVAS_STORE_ADDR says.
		os.Unsetenv("CANVAS_STORE_ADDR")
		local, err := sdk.New(args[0])
		if err != nil {
			log.Fatal(err)
		}
		defer local.Close()

		var n int
		if command == "PUSH" {
			n, err = engine.Migrate(local, client)
		} else {
			n, err = engine.Migrate(client, local)
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Migrated %d boards\n", n)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func readBoard(path string) (schema.Board, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return schema.Board{}, err
	}
	var b schema.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return schema.Board{}, fmt.Errorf("invalid board json: %w", err)
	}
	if b.ID == "" {
		return schema.Board{}, fmt.Errorf("board has no id")
	}
	return b, nil
}

func printUsage() {
	fmt.Println("Canvas CLI - Interface for canvasd")
	fmt.Println("\nUsage:")
	fmt.Println("  canvas PING")
	fmt.Println("  canvas LIST")
	fmt.Println("  canvas GET <boardID>")
	fmt.Println("  canvas ITEMS <boardID> [TYPE...]")
	fmt.Println("  canvas HOSTED <name>")
	fmt.Println("  canvas OPEN <boardID>")
	fmt.Println("  canvas CURRENT")
	fmt.Println("  canvas PUT <board.json | ->")
	fmt.Println("  canvas DEL <boardID>")
	fmt.Println("  canvas PUSH <dataDir>    copy local boards to the daemon")
	fmt.Println("  canvas PULL <dataDir>    copy the daemon's boards to a local directory")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  CANVAS_STORE_ADDR    Address of the daemon (default: localhost:7001)")
	fmt.Println("  CANVAS_DISABLE_TLS   Set to true to disable TLS")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
