package app

import (
	"os"

	"blocknotes/internal/config"
	"blocknotes/internal/logging"
	mcpserver "blocknotes/internal/mcp"
	"blocknotes/internal/service"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It talks to the same knowledge base as the window; an open window picks
// the changes up through its page watcher.
func ServeMCP() {
	cfg := config.Load()
	// stdout carries the protocol, logs go to stderr.
	log := logging.Component(logging.New(os.Stderr, cfg.LogLevel), "mcp")

	kb, _, closer, err := newRemote(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up credentials")
	}
	defer closer.Close()

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Emitter: service.NopEmitter{},
		KB:      kb,
		Log:     log,
	})

	if err := mcpSrv.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server error")
	}
}
