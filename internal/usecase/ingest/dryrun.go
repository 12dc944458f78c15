package ingest

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
)

// dryRunStore stands in for the real store: writes are logged and counted,
// reads go to the wrapped store when there is one.
type dryRunStore struct {
	next   repository.Store
	logger logrus.FieldLogger
	nextID atomic.Int64
	writes atomic.Int64
}

func newDryRunStore(next repository.Store, logger logrus.FieldLogger) *dryRunStore {
	return &dryRunStore{next: next, logger: logger.WithField("dry_run", true)}
}

var _ repository.Store = (*dryRunStore)(nil)

// Writes is the number of records that would have been written.
func (d *dryRunStore) Writes() int64 { return d.writes.Load() }

func (d *dryRunStore) UpsertChapter(ctx context.Context, chapter *entity.Chapter) (int64, error) {
	if err := chapter.Validate(); err != nil {
		return 0, err
	}
	d.writes.Add(1)
	chapter.ID = d.nextID.Add(1)
	d.logger.WithFields(logrus.Fields{"book": chapter.Book, "part": chapter.Part, "chapter": chapter.Number, "title": chapter.Title}).
		Info("would upsert chapter")
	return chapter.ID, nil
}

func (d *dryRunStore) FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error) {
	if d.next == nil {
		return nil, entity.ErrChapterNotFound
	}
	return d.next.FindChapter(ctx, book, part, number)
}

func (d *dryRunStore) UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error {
	if len(records) == 0 {
		return nil
	}
	d.writes.Add(int64(len(records)))
	d.logger.WithFields(logrus.Fields{
		"chapter_id": chapterID,
		"count":      len(records),
		"range":      string(records[0].Key) + ".." + string(records[len(records)-1].Key),
	}).Info("would upsert verses")
	return nil
}

func (d *dryRunStore) GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error) {
	if d.next == nil {
		return nil, nil
	}
	return d.next.GetVerses(ctx, chapterID)
}

func (d *dryRunStore) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	d.writes.Add(int64(len(entries)))
	d.logger.WithField("count", len(entries)).Info("would upsert lexicon entries")
	return nil
}

func (d *dryRunStore) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	if d.next == nil {
		return nil, entity.ErrLexiconNotFound
	}
	return d.next.GetLexicon(ctx, id)
}

func (d *dryRunStore) SearchLexicon(ctx context.Context, q *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	if d.next == nil {
		return nil, nil
	}
	return d.next.SearchLexicon(ctx, q)
}

func (d *dryRunStore) UpsertTranscript(ctx context.Context, t *entity.Transcript) (int64, error) {
	d.writes.Add(1)
	t.ID = d.nextID.Add(1)
	d.logger.WithFields(logrus.Fields{
		"slug":       t.Slug,
		"title":      t.Title,
		"paragraphs": len(t.Paragraphs),
	}).Info("would upsert transcript")
	return t.ID, nil
}

func (d *dryRunStore) GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error) {
	if d.next == nil {
		return nil, entity.ErrTranscriptNotFound
	}
	return d.next.GetTranscript(ctx, slug)
}
