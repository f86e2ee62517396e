package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/talentrag/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd(version.Version)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion(version.Version),
		fang.WithCommit(version.Commit),
	); err != nil {
		stop()
		os.Exit(1)
	}
}
