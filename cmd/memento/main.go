package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var commands = map[string]func(ctx context.Context, args []string){
	"capture":     runCapture,
	"search":      runSearch,
	"show":        runShow,
	"relate":      runRelate,
	"chain":       runChain,
	"consolidate": runConsolidate,
	"assess":      runAssess,
	"history":     runHistory,
	"serve":       runServe,
	"mcp":         runMCP,
	"hook":        runHook,
	"backup":      runBackup,
	"import":      runImport,
	"export":      runExport,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "memento: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cmd(ctx, os.Args[2:])
}

func usage() {
	fmt.Fprintln(os.Stderr, `memento - a shared developer memory store

Usage:
  memento capture     capture a new memory
  memento search      search memories by natural-language query
  memento show        show a memory's detail and relations
  memento relate      create a typed relation between two memories
  memento chain       traverse the relation graph from a memory
  memento consolidate merge clusters of similar aging memories
  memento assess      score a memory's quality and list issues
  memento history     show a memory's audit trail
  memento serve       serve the HTTP+WebSocket UI
  memento mcp         serve the MCP tool-server over stdio
  memento hook        record a session-capture event from a hook
  memento backup      snapshot, list, or restore the sqlite data file
  memento import      import memories from a Markdown/Obsidian vault or a YAML bundle
  memento export      export memories to a YAML bundle`)
}
