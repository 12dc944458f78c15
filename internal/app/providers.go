package app

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	adapterrepo "github.com/eslsoft/vidya/internal/adapter/repository"
	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
	"github.com/eslsoft/vidya/internal/infrastructure/source"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/internal/usecase/backup"
	"github.com/eslsoft/vidya/internal/usecase/ingest"
	"github.com/eslsoft/vidya/internal/usecase/lexicon"
	"github.com/eslsoft/vidya/internal/usecase/section"
	"github.com/eslsoft/vidya/pkg/retry"
)

// Source kinds.
const (
	SourceGitHub = "github"
	SourceDir    = "dir"
)

// NewHTTPClient is shared by the GitHub source and the PostgREST store.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Source.Timeout}
}

// NewStore picks the persistence backend from store.driver. Postgres goes
// through pgxpool when store.pool is set and database/sql otherwise. Dry runs
// get no store at all.
func NewStore(cfg *config.Config, logger logrus.FieldLogger, client *http.Client) (repository.Store, func(), error) {
	if cfg.Ingest.DryRun {
		logger.Info("dry run: no store opened")
		return nil, func() {}, nil
	}
	switch cfg.Store.Driver {
	case config.DriverPostgREST:
		logger.WithField("endpoint", cfg.Store.Endpoint).Debug("using postgrest store")
		return adapterrepo.NewRestStore(cfg.Store.Endpoint, cfg.Store.Key, cfg.Store.Schema, client), func() {}, nil
	case config.DriverPostgres:
		if cfg.Store.Pool {
			pool, cleanup, err := database.NewConnection(cfg, logger)
			if err != nil {
				if cleanup != nil {
					cleanup()
				}
				return nil, nil, err
			}
			return adapterrepo.NewPgxStore(pool), cleanup, nil
		}
	}

	db, cleanup, err := database.NewSQL(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	driver, _ := cfg.DatabaseDriver()
	return adapterrepo.NewSQLStore(db, driver), cleanup, nil
}

// NewSource picks the retrieval backend from source.kind.
func NewSource(cfg *config.Config, logger logrus.FieldLogger, client *http.Client) (ingest.Source, error) {
	switch cfg.Source.Kind {
	case SourceDir:
		if cfg.Source.Root == "" {
			return nil, fmt.Errorf("source.root is required for the %s source", SourceDir)
		}
		return source.NewDir(cfg.Source.Root), nil
	case SourceGitHub, "":
		return source.NewGitHub(cfg.Source, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// NewParser uses the default markers.
func NewParser() *section.Parser {
	return section.NewParser()
}

func persistPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{MaxAttempts: cfg.Ingest.MaxAttempts, BaseDelay: cfg.Ingest.BaseDelay}
}

// NewIngestService applies the ingest settings to the orchestrator.
func NewIngestService(cfg *config.Config, src ingest.Source, store repository.Store, parser *section.Parser, logger logrus.FieldLogger) ingest.Service {
	return ingest.NewService(src, store, parser, logger,
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
		ingest.WithRetryPolicy(persistPolicy(cfg)),
		ingest.WithFetchRetry(retry.Policy{
			MaxAttempts: cfg.Ingest.MaxAttempts,
			BaseDelay:   cfg.Ingest.BaseDelay,
			Retryable:   source.IsRetryable,
		}),
		ingest.WithPacer(ingest.NewPacer(cfg.Source.Delay)),
	)
}

// NewLexiconImporter applies the lexicon settings to the importer. ingest.dry_run
// covers lexicon runs too.
func NewLexiconImporter(cfg *config.Config, store repository.Store, logger logrus.FieldLogger) lexicon.Importer {
	return lexicon.NewImporter(store, logger,
		lexicon.WithBatchSize(cfg.Lexicon.BatchSize),
		lexicon.WithRetryPolicy(persistPolicy(cfg)),
		lexicon.WithDryRun(cfg.Ingest.DryRun),
	)
}

// NewBackupService binds the backup service to the sql handle.
func NewBackupService(cfg *config.Config, db *sql.DB, logger logrus.FieldLogger) (*backup.Service, error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, err
	}
	return backup.NewService(db, driver, logger)
}
