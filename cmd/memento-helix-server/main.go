// Command memento-helix-server hosts the wire protocol the `remote` storage
// backend speaks to (see internal/storage/remote), backed by PostgreSQL and
// pgvector. It is the server-side counterpart a memento installation with
// [storage] backend = "remote" points its endpoint at.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/devmemory/memento/internal/helixserver"
	"github.com/devmemory/memento/internal/storage/postgres"
)

func main() {
	host := flag.String("host", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 6380, "port to listen on")
	dsn := flag.String("dsn", os.Getenv("HELIX_POSTGRES_DSN"), "PostgreSQL connection string")
	token := flag.String("token", os.Getenv("HELIX_API_TOKEN"), "bearer token callers must present")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "memento-helix-server: -dsn or HELIX_POSTGRES_DSN is required")
		os.Exit(1)
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "memento-helix-server: -token or HELIX_API_TOKEN is required")
		os.Exit(1)
	}

	store, err := postgres.Open(*dsn)
	if err != nil {
		log.Fatalf("memento-helix-server: open postgres: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	addr, err := helixserver.Start(ctx, helixserver.Config{Host: *host, Port: *port, Token: *token}, store)
	if err != nil {
		log.Fatalf("memento-helix-server: %v", err)
	}

	fmt.Printf("memento-helix-server: serving on http://%s\n", addr)
	<-ctx.Done()
}
