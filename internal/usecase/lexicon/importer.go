package lexicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/pkg/retry"
)

const defaultBatchSize = 1000

// IDRange spans the ids of one batch.
type IDRange struct {
	First int64
	Last  int64
}

func (r IDRange) String() string { return fmt.Sprintf("%d-%d", r.First, r.Last) }

// Report summarizes one import run.
type Report struct {
	Read          int
	Skipped       int
	Imported      int
	Failed        int
	FailedBatches []IDRange
	DryRun        bool
	Duration      time.Duration
}

// Importer loads a dictionary export into the lexicon store.
type Importer interface {
	ImportFile(ctx context.Context, path string) (*Report, error)
	Import(ctx context.Context, r io.Reader) (*Report, error)
}

type Option func(*importer)

// WithBatchSize sets the number of entries per upsert.
func WithBatchSize(n int) Option {
	return func(i *importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithRetryPolicy overrides retry.DefaultPolicy for batch writes.
func WithRetryPolicy(p retry.Policy) Option {
	return func(i *importer) { i.policy = p }
}

// WithDryRun parses and counts without writing.
func WithDryRun(dry bool) Option {
	return func(i *importer) { i.dryRun = dry }
}

// WithRowFallback retries an exhausted batch one entry at a time so a single
// bad row does not cost the whole batch.
func WithRowFallback() Option {
	return func(i *importer) { i.rowFallback = true }
}

type importer struct {
	repo        repository.LexiconRepository
	logger      logrus.FieldLogger
	batchSize   int
	policy      retry.Policy
	dryRun      bool
	rowFallback bool
}

func NewImporter(repo repository.LexiconRepository, logger logrus.FieldLogger, opts ...Option) Importer {
	i := &importer{
		repo:      repo,
		logger:    logger,
		batchSize: defaultBatchSize,
		policy:    retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportFile checks that path exists before anything else is touched.
func (i *importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entity.ErrDictionaryNotFound, path)
		}
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	i.logger.WithField("path", path).Info("reading dictionary")
	return i.Import(ctx, f)
}

func (i *importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	started := time.Now()
	report := &Report{DryRun: i.dryRun}
	reader := NewReader(r)
	batch := make([]entity.LexiconEntry, 0, i.batchSize)

	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Skipped = reader.Skipped()
			return report, err
		}
		report.Read++
		batch = append(batch, entry)
		if len(batch) < i.batchSize {
			continue
		}
		if err := i.flush(ctx, batch, report); err != nil {
			return report, err
		}
		batch = batch[:0]
	}
	if len(batch) > 0 {
		if err := i.flush(ctx, batch, report); err != nil {
			return report, err
		}
	}

	report.Skipped = reader.Skipped()
	report.Duration = time.Since(started)
	i.logger.WithFields(logrus.Fields{
		"read":     report.Read,
		"imported": report.Imported,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"dry_run":  report.DryRun,
		"duration": report.Duration.String(),
	}).Info("lexicon import finished")
	return report, nil
}

// flush writes one batch. Exhausted batches are logged and counted; only a
// cancelled context stops the run.
func (i *importer) flush(ctx context.Context, batch []entity.LexiconEntry, report *Report) error {
	ids := IDRange{First: batch[0].ID, Last: batch[len(batch)-1].ID}
	log := i.logger.WithFields(logrus.Fields{"range": ids.String(), "size": len(batch)})

	if i.dryRun {
		report.Imported += len(batch)
		log.Debug("dry run: would upsert batch")
		return nil
	}

	res := retry.Do(ctx, i.policy, func(ctx context.Context) error {
		return i.repo.UpsertLexicon(ctx, batch)
	})
	if res.OK() {
		report.Imported += len(batch)
		log.WithField("attempts", res.Attempts).Debug("batch upserted")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.WithError(res.Err).WithField("attempts", res.Attempts).Error("batch failed")
	report.FailedBatches = append(report.FailedBatches, ids)
	if !i.rowFallback {
		report.Failed += len(batch)
		return nil
	}
	for _, entry := range batch {
		if err := i.repo.UpsertLexicon(ctx, []entity.LexiconEntry{entry}); err != nil {
			report.Failed++
			log.WithError(err).WithField("id", entry.ID).Warn("entry failed")
			continue
		}
		report.Imported++
	}
	return nil
}
