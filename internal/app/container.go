package app

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/internal/usecase/backup"
	"github.com/eslsoft/vidya/internal/usecase/ingest"
	"github.com/eslsoft/vidya/internal/usecase/lexicon"
)

// Container aggregates what the ingest and lexicon commands need.
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Store   repository.Store
	Ingest  ingest.Service
	Lexicon lexicon.Importer
}

// DatabaseContainer serves the commands that work on the sql schema directly.
type DatabaseContainer struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *sql.DB
	Backup *backup.Service
}
