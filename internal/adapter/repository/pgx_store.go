package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
)

// PgxStore writes through a pgx pool. Multi-row upserts are queued on a
// pgx.Batch so a chapter costs one round trip.
type PgxStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ repository.Store = (*PgxStore)(nil)

func NewPgxStore(pool *pgxpool.Pool) *PgxStore {
	return &PgxStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

const (
	pgUpsertChapter = `INSERT INTO chapters (book, part, number, title, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (book, part, number) DO UPDATE SET title = EXCLUDED.title, updated_at = EXCLUDED.updated_at
		RETURNING id`
	pgUpsertVerse = `INSERT INTO verses (verse_number, position, script, romanized, gloss, translation, commentary, covers, updated_at, chapter_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chapter_id, verse_number) DO UPDATE SET
			position = EXCLUDED.position, script = EXCLUDED.script, romanized = EXCLUDED.romanized,
			gloss = EXCLUDED.gloss, translation = EXCLUDED.translation, commentary = EXCLUDED.commentary,
			covers = EXCLUDED.covers, updated_at = EXCLUDED.updated_at`
	pgUpsertLexicon = `INSERT INTO lexicon_entries (id, headword, script_form, grammar_tag, preverbs, gloss, normalized_headword)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			headword = EXCLUDED.headword, script_form = EXCLUDED.script_form, grammar_tag = EXCLUDED.grammar_tag,
			preverbs = EXCLUDED.preverbs, gloss = EXCLUDED.gloss, normalized_headword = EXCLUDED.normalized_headword`
	pgUpsertTranscript = `INSERT INTO transcripts (slug, kind, title, date, location, audio_url, category, recipient,
			book_slug, verse_ref, body, content_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (slug) DO UPDATE SET
			kind = EXCLUDED.kind, title = EXCLUDED.title, date = EXCLUDED.date, location = EXCLUDED.location,
			audio_url = EXCLUDED.audio_url, category = EXCLUDED.category, recipient = EXCLUDED.recipient,
			book_slug = EXCLUDED.book_slug, verse_ref = EXCLUDED.verse_ref,
			body = EXCLUDED.body, content_hash = EXCLUDED.content_hash, updated_at = EXCLUDED.updated_at
		RETURNING id`
	pgLexiconSelect = `SELECT id, headword, script_form, grammar_tag, preverbs, gloss, normalized_headword FROM lexicon_entries`
)

func (s *PgxStore) UpsertChapter(ctx context.Context, chapter *entity.Chapter) (int64, error) {
	if err := chapter.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, pgUpsertChapter, chapter.Book, chapter.Part, chapter.Number, chapter.Title, s.now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert chapter %s/%d/%d: %w", chapter.Book, chapter.Part, chapter.Number, err)
	}
	chapter.ID = id
	return id, nil
}

func (s *PgxStore) FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error) {
	ch := entity.Chapter{Book: book, Part: part, Number: number}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title FROM chapters WHERE book = $1 AND part = $2 AND number = $3`,
		book, part, number,
	).Scan(&ch.ID, &ch.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrChapterNotFound
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &ch, nil
}

func (s *PgxStore) UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error {
	records = uniqueVerses(records)
	if len(records) == 0 {
		return nil
	}
	now := s.now()
	b := &pgx.Batch{}
	for _, rec := range records {
		b.Queue(pgUpsertVerse,
			string(rec.Key), rec.Key.Start(), rec.Script, rec.Romanized, rec.Gloss,
			rec.Translation, rec.Commentary, joinCovers(rec.Covers), now, chapterID)
	}
	if err := s.sendBatch(ctx, b); err != nil {
		return fmt.Errorf("upsert verses %s..%s: %w", records[0].Key, records[len(records)-1].Key, err)
	}
	return nil
}

func (s *PgxStore) GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT verse_number, script, romanized, gloss, translation, commentary, covers
		FROM verses WHERE chapter_id = $1 ORDER BY position, verse_number`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("get verses: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.VerseRecord, error) {
		var (
			rec         entity.VerseRecord
			key, covers string
		)
		err := row.Scan(&key, &rec.Script, &rec.Romanized, &rec.Gloss, &rec.Translation, &rec.Commentary, &covers)
		rec.Key = entity.VerseKey(key)
		rec.Covers = splitCovers(covers)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan verses: %w", err)
	}
	sortVerses(out)
	return out, nil
}

func (s *PgxStore) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	entries = lo.UniqBy(entries, func(e entity.LexiconEntry) int64 { return e.ID })
	if len(entries) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(pgUpsertLexicon, e.ID, e.Headword, e.ScriptForm, e.GrammarTag, e.Preverbs, e.Gloss, e.NormalizedHeadword)
	}
	if err := s.sendBatch(ctx, b); err != nil {
		return fmt.Errorf("upsert lexicon ids %d..%d: %w", entries[0].ID, entries[len(entries)-1].ID, err)
	}
	return nil
}

func (s *PgxStore) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	rows, err := s.pool.Query(ctx, pgLexiconSelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get lexicon: %w", err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanPgLexicon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrLexiconNotFound
		}
		return nil, fmt.Errorf("get lexicon: %w", err)
	}
	return &entry, nil
}

func (s *PgxStore) SearchLexicon(ctx context.Context, q *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	rows, err := s.pool.Query(ctx,
		pgLexiconSelect+` WHERE normalized_headword LIKE $1 ORDER BY normalized_headword, id LIMIT $2 OFFSET $3`,
		escapeLike(q.Prefix)+"%", q.Limit(defaultSearchLimit), q.Offset())
	if err != nil {
		return nil, fmt.Errorf("search lexicon: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanPgLexicon)
	if err != nil {
		return nil, fmt.Errorf("scan lexicon: %w", err)
	}
	return out, nil
}

func (s *PgxStore) UpsertTranscript(ctx context.Context, t *entity.Transcript) (int64, error) {
	if t.Slug == "" {
		return 0, errors.New("transcript slug is required")
	}
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, pgUpsertTranscript,
			t.Slug, string(t.Kind), t.Title, t.Meta.Date, t.Meta.Location, t.Meta.AudioURL,
			t.Meta.Category, t.Meta.Recipient, t.Meta.BookSlug, t.Meta.VerseRef, t.Body, t.ContentHash, s.now(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert transcript %s: %w", t.Slug, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transcript_paragraphs WHERE transcript_id = $1`, id); err != nil {
			return fmt.Errorf("clear paragraphs: %w", err)
		}
		if len(t.Paragraphs) == 0 {
			return nil
		}
		rows := lo.Map(t.Paragraphs, func(p string, i int) []any { return []any{i + 1, p, id} })
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"transcript_paragraphs"},
			[]string{"position", "text", "transcript_id"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy paragraphs: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

func (s *PgxStore) GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error) {
	var (
		t    entity.Transcript
		kind string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, slug, kind, title, date, location, audio_url, category, recipient, book_slug, verse_ref, body, content_hash
		FROM transcripts WHERE slug = $1`, slug,
	).Scan(&t.ID, &t.Slug, &kind, &t.Title, &t.Meta.Date, &t.Meta.Location, &t.Meta.AudioURL,
		&t.Meta.Category, &t.Meta.Recipient, &t.Meta.BookSlug, &t.Meta.VerseRef, &t.Body, &t.ContentHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	t.Kind = entity.ParseTranscriptKind(kind)

	rows, err := s.pool.Query(ctx,
		`SELECT text FROM transcript_paragraphs WHERE transcript_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("get paragraphs: %w", err)
	}
	if t.Paragraphs, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return nil, fmt.Errorf("scan paragraphs: %w", err)
	}
	return &t, nil
}

func (s *PgxStore) sendBatch(ctx context.Context, b *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func scanPgLexicon(row pgx.CollectableRow) (entity.LexiconEntry, error) {
	var e entity.LexiconEntry
	err := row.Scan(&e.ID, &e.Headword, &e.ScriptForm, &e.GrammarTag, &e.Preverbs, &e.Gloss, &e.NormalizedHeadword)
	return e, err
}
