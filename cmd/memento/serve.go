package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/devmemory/memento/internal/server"
)

// runServe starts the HTTP+WebSocket UI, serving the REST surface and live
// activity feed until ctx is canceled.
func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "override the configured host")
	port := fs.Int("port", 0, "override the configured port")
	fs.Parse(args)

	a, err := newApp(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	srvCfg := a.cfg.Server
	if *host != "" {
		srvCfg.Host = *host
	}
	if *port != 0 {
		srvCfg.Port = *port
	}

	addr, hub, err := server.Start(ctx, srvCfg, a.eng)
	if err != nil {
		fatalf("serve: %v", err)
	}

	watcher, err := server.WatchActivity(a.cfg.Storage.DataPath, hub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memento: serve: activity feed disabled: %v\n", err)
	} else {
		defer watcher.Stop()
	}

	fmt.Printf("memento: serving on http://%s (security_mode=%s)\n", addr, srvCfg.SecurityMode)
	<-ctx.Done()
}
