// Command kbserver serves the knowledge-base REST API from a local SQLite
// file. The desktop editor and the MCP server both talk to it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blocknotes/internal/config"
	"blocknotes/internal/logging"
	"blocknotes/internal/server"
	"blocknotes/internal/service"
	"blocknotes/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	log := logging.Component(logging.Console(cfg.LogLevel), "kbserver")

	db, err := storage.New(cfg.ServerDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ServerDBPath).Msg("open database")
	}
	defer db.Close()

	pageStore := storage.NewPageStore(db)
	blocks := service.NewBlockService(storage.NewBlockStore(db), pageStore)
	pages := service.NewPageService(pageStore, blocks)

	srv := server.New(pages, blocks, server.Options{
		Token:      cfg.ServerToken,
		CORSOrigin: cfg.CORSOrigin,
	}, log)
	if err := srv.Run(ctx, cfg.ServerAddr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
