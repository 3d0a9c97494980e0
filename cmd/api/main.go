package main

import (
	"os"

	"github.com/yigit/substitutions/internal/pkg/logger"
	"github.com/yigit/substitutions/internal/server"
)

// @title Course Substitutions API
// @version 1.0
// @description Read-only view of course substitution rules with inverse pairs merged

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
