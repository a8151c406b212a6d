package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/devmemory/memento/internal/api/mcp"
)

// runMCP serves JSON-RPC 2.0 requests from stdin, writing responses to
// stdout. CRITICAL: all logging must go to stderr, since any stray bytes on
// stdout would corrupt the protocol stream.
func runMCP(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	sessionID := fs.String("session", "mcp-session", "session ID used to scope captures without an explicit scope_id")
	fs.Parse(args)

	log.SetOutput(os.Stderr)
	log.SetPrefix("memento-mcp: ")

	a, err := newApp(ctx)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close()

	srv := mcp.NewServer(a.eng, *sessionID)
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")
	if err := transport.Serve(ctx); err != nil {
		log.Printf("transport stopped: %v", err)
	}
}
