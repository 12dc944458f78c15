//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
	"github.com/eslsoft/vidya/internal/infrastructure/logger"
)

var loggerSet = wire.NewSet(
	logger.NewLogger,
	wire.Bind(new(logrus.FieldLogger), new(*logrus.Logger)),
)

var storeSet = wire.NewSet(
	NewHTTPClient,
	NewStore,
)

var usecaseSet = wire.NewSet(
	NewParser,
	NewSource,
	NewIngestService,
	NewLexiconImporter,
)

var databaseSet = wire.NewSet(
	database.NewSQL,
	NewBackupService,
)

// Initialize builds the ingest container. cfg must already be validated.
func Initialize(cfg *config.Config) (*Container, func(), error) {
	wire.Build(
		loggerSet,
		storeSet,
		usecaseSet,
		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}

// InitializeDatabase builds the container for schema and backup commands.
func InitializeDatabase(cfg *config.Config) (*DatabaseContainer, func(), error) {
	wire.Build(
		loggerSet,
		databaseSet,
		wire.Struct(new(DatabaseContainer), "*"),
	)
	return nil, nil, nil
}
