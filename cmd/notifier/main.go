// Package main starts the notifier event consumer process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	notifiercmd "github.com/mailroomhq/triage/internal/cmd/notifier"
)

func main() {
	cfg, err := notifiercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[NOTIFIER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := notifiercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to consume events: %v", err)
	}
}
