// Command phenomctl runs operator tasks against the Phenom database:
// schema migration, OAuth client management and user removal.
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/iliyamo/phenom-api/internal/config"
	"github.com/iliyamo/phenom-api/internal/logger"
)

func main() {
	ctx := context.Background()
	envErr := config.LoadEnv(ctx, ".env")
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Warn("environment partially loaded", zap.Error(envErr))
	}

	if err := newRootCmd(ctx, log, openEnv).Execute(); err != nil {
		log.Error("command failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
