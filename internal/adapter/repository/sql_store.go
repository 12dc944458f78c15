package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
	"github.com/eslsoft/vidya/internal/repository"
)

var (
	verseColumns = []string{
		"verse_number", "position", "script", "romanized", "gloss",
		"translation", "commentary", "covers", "updated_at", "chapter_id",
	}
	lexiconColumns = []string{
		"id", "headword", "script_form", "grammar_tag", "preverbs", "gloss", "normalized_headword",
	}
	transcriptColumns = []string{
		"slug", "kind", "title", "date", "location", "audio_url",
		"category", "recipient", "book_slug", "verse_ref", "body", "content_hash", "updated_at",
	}
)

// SQLStore persists records through database/sql. Queries are built with
// ent's dialect builder so the same code serves sqlite3 and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

var _ repository.Store = (*SQLStore)(nil)

// NewSQLStore wraps an open handle. driver is "sqlite3" or "postgres".
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) builder() *entsql.DialectBuilder { return entsql.Dialect(s.driver) }

func (s *SQLStore) UpsertChapter(ctx context.Context, chapter *entity.Chapter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := chapter.Validate(); err != nil {
		return 0, err
	}

	query, args := s.builder().Insert(database.ChaptersTable.Name).
		Columns("book", "part", "number", "title", "updated_at").
		Values(chapter.Book, chapter.Part, chapter.Number, chapter.Title, s.now()).
		OnConflict(entsql.ConflictColumns("book", "part", "number"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upsert chapter %s/%d/%d: %w", chapter.Book, chapter.Part, chapter.Number, err)
	}

	found, err := s.FindChapter(ctx, chapter.Book, chapter.Part, chapter.Number)
	if err != nil {
		return 0, err
	}
	chapter.ID = found.ID
	return found.ID, nil
}

func (s *SQLStore) FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error) {
	query, args := s.builder().Select("id", "title").
		From(entsql.Table(database.ChaptersTable.Name)).
		Where(entsql.And(
			entsql.EQ("book", book),
			entsql.EQ("part", part),
			entsql.EQ("number", number),
		)).
		Query()

	ch := entity.Chapter{Book: book, Part: part, Number: number}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ch.ID, &ch.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrChapterNotFound
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &ch, nil
}

func (s *SQLStore) UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records = uniqueVerses(records)
	if len(records) == 0 {
		return nil
	}

	insert := s.builder().Insert(database.VersesTable.Name).Columns(verseColumns...)
	now := s.now()
	for _, rec := range records {
		insert.Values(
			string(rec.Key), rec.Key.Start(), rec.Script, rec.Romanized, rec.Gloss,
			rec.Translation, rec.Commentary, joinCovers(rec.Covers), now, chapterID,
		)
	}
	query, args := insert.
		OnConflict(entsql.ConflictColumns("chapter_id", "verse_number"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert verses %s..%s: %w", records[0].Key, records[len(records)-1].Key, err)
	}
	return nil
}

func (s *SQLStore) GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error) {
	query, args := s.builder().
		Select("verse_number", "script", "romanized", "gloss", "translation", "commentary", "covers").
		From(entsql.Table(database.VersesTable.Name)).
		Where(entsql.EQ("chapter_id", chapterID)).
		OrderBy("position", "verse_number").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get verses: %w", err)
	}
	defer rows.Close()

	var out []entity.VerseRecord
	for rows.Next() {
		var (
			rec    entity.VerseRecord
			key    string
			covers string
		)
		if err := rows.Scan(&key, &rec.Script, &rec.Romanized, &rec.Gloss, &rec.Translation, &rec.Commentary, &covers); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		rec.Key = entity.VerseKey(key)
		rec.Covers = splitCovers(covers)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verses: %w", err)
	}
	sortVerses(out)
	return out, nil
}

func (s *SQLStore) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries = lo.UniqBy(entries, func(e entity.LexiconEntry) int64 { return e.ID })
	if len(entries) == 0 {
		return nil
	}

	insert := s.builder().Insert(database.LexiconEntriesTable.Name).Columns(lexiconColumns...)
	for _, e := range entries {
		insert.Values(e.ID, e.Headword, e.ScriptForm, nullable(e.GrammarTag), nullable(e.Preverbs), nullable(e.Gloss), e.NormalizedHeadword)
	}
	query, args := insert.
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert lexicon ids %d..%d: %w", entries[0].ID, entries[len(entries)-1].ID, err)
	}
	return nil
}

func (s *SQLStore) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	query, args := s.builder().Select(lexiconColumns...).
		From(entsql.Table(database.LexiconEntriesTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	entry, err := scanLexicon(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLexiconNotFound
		}
		return nil, fmt.Errorf("get lexicon: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) SearchLexicon(ctx context.Context, q *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	sel := s.builder().Select(lexiconColumns...).
		From(entsql.Table(database.LexiconEntriesTable.Name)).
		OrderBy("normalized_headword", "id").
		Limit(int(q.Limit(defaultSearchLimit)))
	if q.Prefix != "" {
		sel.Where(entsql.HasPrefix("normalized_headword", q.Prefix))
	}
	if off := q.Offset(); off > 0 {
		sel.Offset(int(off))
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search lexicon: %w", err)
	}
	defer rows.Close()

	var out []entity.LexiconEntry
	for rows.Next() {
		entry, err := scanLexicon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lexicon: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertTranscript(ctx context.Context, t *entity.Transcript) (id int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.Slug == "" {
		return 0, errors.New("transcript slug is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := s.builder().Insert(database.TranscriptsTable.Name).
		Columns(transcriptColumns...).
		Values(
			t.Slug, string(t.Kind), t.Title, nullableTime(t.Meta.Date), nullable(t.Meta.Location),
			nullable(t.Meta.AudioURL), nullable(t.Meta.Category), nullable(t.Meta.Recipient),
			nullable(t.Meta.BookSlug), nullable(t.Meta.VerseRef), t.Body, t.ContentHash, s.now(),
		).
		OnConflict(entsql.ConflictColumns("slug"), entsql.ResolveWithNewValues()).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upsert transcript %s: %w", t.Slug, err)
	}

	query, args = s.builder().Select("id").
		From(entsql.Table(database.TranscriptsTable.Name)).
		Where(entsql.EQ("slug", t.Slug)).
		Query()
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("select transcript id: %w", err)
	}

	query, args = s.builder().Delete(database.TranscriptParagraphsTable.Name).
		Where(entsql.EQ("transcript_id", id)).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("clear paragraphs: %w", err)
	}

	if len(t.Paragraphs) > 0 {
		insert := s.builder().Insert(database.TranscriptParagraphsTable.Name).
			Columns("position", "text", "transcript_id")
		for i, p := range t.Paragraphs {
			insert.Values(i+1, p, id)
		}
		query, args = insert.Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert paragraphs: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transcript: %w", err)
	}
	t.ID = id
	return id, nil
}

func (s *SQLStore) GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error) {
	query, args := s.builder().Select(append([]string{"id"}, transcriptColumns[:len(transcriptColumns)-1]...)...).
		From(entsql.Table(database.TranscriptsTable.Name)).
		Where(entsql.EQ("slug", slug)).
		Query()

	var (
		t                                    entity.Transcript
		kind                                 string
		date                                 sql.NullTime
		location, audio, category, recipient sql.NullString
		book, verse                          sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.ID, &t.Slug, &kind, &t.Title, &date, &location, &audio, &category, &recipient,
		&book, &verse, &t.Body, &t.ContentHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	t.Kind = entity.ParseTranscriptKind(kind)
	t.Meta = entity.TranscriptMeta{
		Date:      timePtr(date),
		Location:  stringPtr(location),
		AudioURL:  stringPtr(audio),
		Category:  stringPtr(category),
		Recipient: stringPtr(recipient),
		BookSlug:  stringPtr(book),
		VerseRef:  stringPtr(verse),
	}

	query, args = s.builder().Select("text").
		From(entsql.Table(database.TranscriptParagraphsTable.Name)).
		Where(entsql.EQ("transcript_id", t.ID)).
		OrderBy("position").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get paragraphs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan paragraph: %w", err)
		}
		t.Paragraphs = append(t.Paragraphs, p)
	}
	return &t, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLexicon(row rowScanner) (*entity.LexiconEntry, error) {
	var (
		e                        entity.LexiconEntry
		grammar, preverbs, gloss sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Headword, &e.ScriptForm, &grammar, &preverbs, &gloss, &e.NormalizedHeadword); err != nil {
		return nil, err
	}
	e.GrammarTag = stringPtr(grammar)
	e.Preverbs = stringPtr(preverbs)
	e.Gloss = stringPtr(gloss)
	return &e, nil
}
