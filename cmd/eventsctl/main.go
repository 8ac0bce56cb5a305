package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/client"
	"github.com/chapterhub/event-gallery/internal/gallery"
	"github.com/chapterhub/event-gallery/pkg/config"
	"github.com/chapterhub/event-gallery/pkg/logger"
)

const usage = `usage: eventsctl <command> [flags]

commands:
  list [all|upcoming|past|highlights] [-category c] [-search q]
  create -title t -speaker s -date d -type t -photo file [-photo file ...]
  seed -f events.yaml
  delete <event-id>
  add-photos <event-id> <file> [file ...]
  delete-photos [-yes] <event-id> <filename> [filename ...]
  watch
`

type app struct {
	api    *client.Client
	events *gallery.EventService
	logger *zap.Logger
	stdout *os.File
	stdin  *os.File
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg, "eventsctl")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	api := client.New(cfg.Client, logr)
	a := &app{
		api:    api,
		events: gallery.NewEventService(api, gallery.LogNotifier{Logger: logr}, logr),
		logger: logr,
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "list":
		runErr = a.list(ctx, args)
	case "create":
		runErr = a.create(ctx, args)
	case "seed":
		runErr = a.seed(ctx, args)
	case "delete":
		runErr = a.deleteEvent(ctx, args)
	case "add-photos":
		runErr = a.addPhotos(ctx, args)
	case "delete-photos":
		runErr = a.deletePhotos(ctx, args)
	case "watch":
		runErr = a.watch(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}
