// Command ircd runs a standalone RFC 1459 IRC server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaycore/ircd/internal/config"
	"github.com/relaycore/ircd/internal/identd"
	"github.com/relaycore/ircd/internal/ircd"
)

func main() {
	args := getArgs()
	if args == nil {
		os.Exit(1)
	}

	if err := realMain(args); err != nil {
		log.Fatal(err)
	}
}

func realMain(args *Args) error {
	cfg, err := config.Load(args.ConfigFile)
	if err != nil {
		return err
	}

	server := ircd.NewServer(cfg, identd.NullResolver{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Print("received shutdown signal")
		cancel()
	}()

	return server.Run(ctx)
}
