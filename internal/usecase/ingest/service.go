// Package ingest drives a collection from listing to persisted records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/internal/usecase/merge"
	"github.com/eslsoft/vidya/internal/usecase/section"
	"github.com/eslsoft/vidya/pkg/ordinal"
	"github.com/eslsoft/vidya/pkg/retry"
)

const defaultBatchSize = 100

// Source retrieves raw item text. Fetch returns entity.ErrSourceNotFound
// when the item does not exist.
type Source interface {
	List(ctx context.Context, col entity.Collection) ([]string, error)
	Fetch(ctx context.Context, col entity.Collection, itemPath string) (string, error)
}

// Request selects what one run ingests.
type Request struct {
	Collection entity.Collection
	// Item restricts the run to one item, by path, file name or stem.
	Item string
	// Where is a CEL expression over name, path, index, number and collection.
	Where  string
	Limit  int
	DryRun bool
}

// Service runs ingestions. It is not safe for concurrent Run calls because
// the pacer is shared.
type Service interface {
	Run(ctx context.Context, req Request) (*Report, error)
}

type Option func(*service)

// WithBatchSize sets how many verses go into one upsert.
func WithBatchSize(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetryPolicy sets the policy for persistence batches.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *service) { s.persistPolicy = p }
}

// WithFetchRetry sets the policy for content fetches. Its Retryable func
// decides which source errors are transient.
func WithFetchRetry(p retry.Policy) Option {
	return func(s *service) { s.fetchPolicy = p }
}

// WithPacer replaces the default pacer.
func WithPacer(p *Pacer) Option {
	return func(s *service) { s.pacer = p }
}

// WithMergeOptions passes options through to merge.Merge.
func WithMergeOptions(opts ...merge.Option) Option {
	return func(s *service) { s.mergeOpts = opts }
}

// WithRunID replaces the uuid run id generator.
func WithRunID(fn func() string) Option {
	return func(s *service) { s.newRunID = fn }
}

type service struct {
	source        Source
	store         repository.Store
	parser        *section.Parser
	logger        logrus.FieldLogger
	pacer         *Pacer
	batchSize     int
	persistPolicy retry.Policy
	fetchPolicy   retry.Policy
	mergeOpts     []merge.Option
	newRunID      func() string
}

func NewService(source Source, store repository.Store, parser *section.Parser, logger logrus.FieldLogger, opts ...Option) Service {
	s := &service{
		source:        source,
		store:         store,
		parser:        parser,
		logger:        logger,
		pacer:         NewPacer(0),
		batchSize:     defaultBatchSize,
		persistPolicy: retry.DefaultPolicy,
		fetchPolicy:   retry.Policy{MaxAttempts: retry.DefaultPolicy.MaxAttempts, BaseDelay: retry.DefaultPolicy.BaseDelay, Retryable: defaultFetchRetryable},
		mergeOpts:     []merge.Option{merge.WithRangeFolding()},
		newRunID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultFetchRetryable(err error) bool {
	return !errors.Is(err, entity.ErrSourceNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// run carries the state of one Run call.
type run struct {
	col    entity.Collection
	store  repository.Store
	report *Report
	logger logrus.FieldLogger
}

func (s *service) Run(ctx context.Context, req Request) (*Report, error) {
	col := req.Collection
	report := &Report{RunID: s.newRunID(), Collection: col.Name, DryRun: req.DryRun, Started: time.Now()}
	r := &run{
		col:    col,
		store:  s.store,
		report: report,
		logger: s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "collection": col.Name, "language": col.Language.CodeOr("-")}),
	}
	if req.DryRun {
		r.store = newDryRunStore(s.store, r.logger)
	}
	if r.store == nil {
		return report, errors.New("no store configured")
	}

	r.logger.WithField("phase", PhaseListing).Info("listing items")
	items, err := s.source.List(ctx, col)
	if err != nil {
		return report, fmt.Errorf("list %s: %w", col.Name, err)
	}
	report.Listed = len(items)

	selected, err := selectItems(col, items, req)
	if err != nil {
		return report, err
	}
	report.Selected = len(selected)
	r.logger.WithFields(logrus.Fields{"listed": report.Listed, "selected": report.Selected}).Info("items selected")

	for _, item := range selected {
		if err := ctx.Err(); err != nil {
			return s.finish(r), err
		}
		log := r.logger.WithField("item", item)
		var ierr error
		if col.Kind.IsTranscript() {
			ierr = s.ingestTranscript(ctx, r, item, log)
		} else {
			ierr = s.ingestChapter(ctx, r, item, log)
		}
		switch {
		case ierr == nil:
		case errors.Is(ierr, context.Canceled), errors.Is(ierr, context.DeadlineExceeded):
			return s.finish(r), ierr
		case errors.Is(ierr, errSkipped):
			report.Skipped++
			log.WithError(ierr).Warn("item skipped")
		default:
			report.fail(item)
			log.WithError(ierr).WithField("phase", PhaseFailedItem).Error("item failed")
		}
	}
	return s.finish(r), nil
}

func (s *service) finish(r *run) *Report {
	r.report.Duration = time.Since(r.report.Started)
	r.logger.WithFields(r.report.Fields()).WithField("phase", PhaseDone).Info("run finished")
	return r.report
}

var errSkipped = errors.New("nothing to ingest")

// fetch paces and retries one content fetch.
func (s *service) fetch(ctx context.Context, col entity.Collection, itemPath string) (string, error) {
	var body string
	res := retry.Do(ctx, s.fetchPolicy, func(ctx context.Context) error {
		if err := s.pacer.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = s.source.Fetch(ctx, col, itemPath)
		return err
	})
	return body, res.Err
}

// ingestChapter fetches both streams of a chapter, merges them and writes the
// chapter and its verses.
func (s *service) ingestChapter(ctx context.Context, r *run, item string, log logrus.FieldLogger) error {
	log.WithField("phase", PhaseFetching).Debug("fetching")
	primary, perr := s.fetch(ctx, r.col, item)
	if perr != nil && !errors.Is(perr, entity.ErrSourceNotFound) {
		return perr
	}

	var secondary string
	serr := entity.ErrSourceNotFound
	if sec, ok := r.col.Secondary(); ok {
		secondary, serr = s.fetch(ctx, sec, path.Join(sec.Path, path.Base(item)))
		if serr != nil && !errors.Is(serr, entity.ErrSourceNotFound) {
			return serr
		}
		if serr != nil {
			log.Warn("no target-language stream for item")
		}
	}
	if perr != nil && serr != nil {
		return fmt.Errorf("%w: %s", entity.ErrSourceNotFound, item)
	}

	log.WithField("phase", PhaseParsing).Debug("parsing")
	a := s.parser.Parse(primary)
	b := s.parser.Parse(secondary)
	if len(a.Verses) == 0 && len(b.Verses) == 0 {
		return fmt.Errorf("%w: no verse markers in %s", errSkipped, item)
	}

	chapter := chapterFor(r.col, item, a.Preamble, b.Preamble)

	log.WithField("phase", PhaseMerging).Debug("merging")
	records := merge.Merge(a.Verses, b.Verses, s.mergeOpts...)
	for _, rec := range records {
		if rec.Translation == "" {
			r.report.IncompleteVerses++
		}
	}

	// prefaces and intros resolve to no chapter number; retrying cannot help
	if err := chapter.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errSkipped, err)
	}

	log = log.WithFields(logrus.Fields{"phase": PhasePersisting, "chapter": chapter.Number, "verses": len(records)})
	res := retry.Do(ctx, s.persistPolicy, func(ctx context.Context) error {
		_, err := r.store.UpsertChapter(ctx, &chapter)
		return err
	})
	if res.Err != nil {
		if errors.Is(res.Err, entity.ErrInvalidChapter) {
			return fmt.Errorf("%w: %v", errSkipped, res.Err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.report.FailedBatches++
		return fmt.Errorf("upsert chapter: %w", res.Err)
	}

	failed := 0
	for _, batch := range lo.Chunk(records, s.batchSize) {
		keyRange := string(batch[0].Key) + ".." + string(batch[len(batch)-1].Key)
		res := retry.Do(ctx, s.persistPolicy, func(ctx context.Context) error {
			return r.store.UpsertVerses(ctx, chapter.ID, batch)
		})
		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failed++
			r.report.FailedBatches++
			log.WithError(res.Err).WithFields(logrus.Fields{"range": keyRange, "attempts": res.Attempts}).Error("verse batch failed")
			continue
		}
		r.report.VersesWritten += len(batch)
		log.WithFields(logrus.Fields{"range": keyRange, "attempts": res.Attempts}).Debug("verse batch written")
	}
	if failed > 0 {
		return fmt.Errorf("%d verse batch(es) failed", failed)
	}

	r.report.Imported++
	log.WithField("phase", PhaseDone).Info("chapter ingested")
	return nil
}

// chapterFor resolves the chapter identity from the primary heading, then the
// target-language heading, then the file name.
func chapterFor(col entity.Collection, item, primary, secondary string) entity.Chapter {
	number, title := section.Heading(primary)
	if number == 0 || title == "" {
		n, t := section.Heading(secondary)
		if number == 0 {
			number = n
		}
		if title == "" {
			title = t
		}
	}
	if number == 0 {
		name := path.Base(item)
		number = ordinal.Resolve(strings.TrimSuffix(name, path.Ext(name)))
	}
	return entity.Chapter{Book: col.Book, Part: col.Part, Number: number, Title: title}
}

// ingestTranscript handles lecture and letter items, which carry no verses.
func (s *service) ingestTranscript(ctx context.Context, r *run, item string, log logrus.FieldLogger) error {
	log.WithField("phase", PhaseFetching).Debug("fetching")
	raw, err := s.fetch(ctx, r.col, item)
	if err != nil {
		return err
	}

	log.WithField("phase", PhaseParsing).Debug("parsing")
	t := s.parser.ParseTranscript(raw)
	enrichTranscript(&t, r.col.Kind.TranscriptKind(), item)
	if len(t.Paragraphs) == 0 {
		return fmt.Errorf("%w: empty transcript %s", errSkipped, item)
	}

	log = log.WithFields(logrus.Fields{"phase": PhasePersisting, "slug": t.Slug})
	res := retry.Do(ctx, s.persistPolicy, func(ctx context.Context) error {
		_, err := r.store.UpsertTranscript(ctx, &t)
		return err
	})
	if res.Err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.report.FailedBatches++
		return fmt.Errorf("upsert transcript: %w", res.Err)
	}

	r.report.TranscriptsWritten++
	r.report.Imported++
	log.WithField("phase", PhaseDone).Info("transcript ingested")
	return nil
}
