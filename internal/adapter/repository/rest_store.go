package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
)

// APIError is a non-2xx answer from the REST endpoint.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// RestStore talks to a PostgREST endpoint (Supabase exposes one under
// /rest/v1). Upserts use Prefer: resolution=merge-duplicates together with
// the on_conflict parameter.
type RestStore struct {
	base   string
	key    string
	schema string
	client *http.Client
	now    func() time.Time
}

var _ repository.Store = (*RestStore)(nil)

// NewRestStore builds a store for base, authenticating with key. A nil client
// means http.DefaultClient.
func NewRestStore(base, key, schema string, client *http.Client) *RestStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &RestStore{
		base:   strings.TrimRight(base, "/"),
		key:    key,
		schema: schema,
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type chapterRow struct {
	ID        int64     `json:"id,omitempty"`
	Book      string    `json:"book"`
	Part      int       `json:"part"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

type verseRow struct {
	VerseNumber string    `json:"verse_number"`
	Position    int       `json:"position"`
	Script      string    `json:"script"`
	Romanized   string    `json:"romanized"`
	Gloss       string    `json:"gloss"`
	Translation string    `json:"translation"`
	Commentary  string    `json:"commentary"`
	Covers      string    `json:"covers"`
	UpdatedAt   time.Time `json:"updated_at"`
	ChapterID   int64     `json:"chapter_id"`
}

type lexiconRow struct {
	ID                 int64   `json:"id"`
	Headword           string  `json:"headword"`
	ScriptForm         string  `json:"script_form"`
	GrammarTag         *string `json:"grammar_tag"`
	Preverbs           *string `json:"preverbs"`
	Gloss              *string `json:"gloss"`
	NormalizedHeadword string  `json:"normalized_headword"`
}

type transcriptRow struct {
	ID          int64      `json:"id,omitempty"`
	Slug        string     `json:"slug"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	AudioURL    *string    `json:"audio_url"`
	Category    *string    `json:"category"`
	Recipient   *string    `json:"recipient"`
	BookSlug    *string    `json:"book_slug"`
	VerseRef    *string    `json:"verse_ref"`
	Body        string     `json:"body"`
	ContentHash string     `json:"content_hash"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type paragraphRow struct {
	Position     int    `json:"position"`
	Text         string `json:"text"`
	TranscriptID int64  `json:"transcript_id"`
}

func (s *RestStore) UpsertChapter(ctx context.Context, chapter *entity.Chapter) (int64, error) {
	if err := chapter.Validate(); err != nil {
		return 0, err
	}
	row := chapterRow{Book: chapter.Book, Part: chapter.Part, Number: chapter.Number, Title: chapter.Title, UpdatedAt: s.now()}
	var out []chapterRow
	if err := s.upsert(ctx, "chapters", "book,part,number", []chapterRow{row}, &out); err != nil {
		return 0, fmt.Errorf("upsert chapter %s/%d/%d: %w", chapter.Book, chapter.Part, chapter.Number, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("upsert chapter %s/%d/%d: empty representation", chapter.Book, chapter.Part, chapter.Number)
	}
	chapter.ID = out[0].ID
	return out[0].ID, nil
}

func (s *RestStore) FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error) {
	q := url.Values{}
	q.Set("select", "id,title")
	q.Set("book", "eq."+book)
	q.Set("part", "eq."+strconv.Itoa(part))
	q.Set("number", "eq."+strconv.Itoa(number))
	var rows []chapterRow
	if err := s.do(ctx, http.MethodGet, "chapters", q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	if len(rows) == 0 {
		return nil, entity.ErrChapterNotFound
	}
	return &entity.Chapter{ID: rows[0].ID, Book: book, Part: part, Number: number, Title: rows[0].Title}, nil
}

func (s *RestStore) UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error {
	records = uniqueVerses(records)
	if len(records) == 0 {
		return nil
	}
	now := s.now()
	rows := lo.Map(records, func(rec entity.VerseRecord, _ int) verseRow {
		return verseRow{
			VerseNumber: string(rec.Key),
			Position:    rec.Key.Start(),
			Script:      rec.Script,
			Romanized:   rec.Romanized,
			Gloss:       rec.Gloss,
			Translation: rec.Translation,
			Commentary:  rec.Commentary,
			Covers:      joinCovers(rec.Covers),
			UpdatedAt:   now,
			ChapterID:   chapterID,
		}
	})
	if err := s.upsert(ctx, "verses", "chapter_id,verse_number", rows, nil); err != nil {
		return fmt.Errorf("upsert verses %s..%s: %w", records[0].Key, records[len(records)-1].Key, err)
	}
	return nil
}

func (s *RestStore) GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error) {
	q := url.Values{}
	q.Set("chapter_id", "eq."+strconv.FormatInt(chapterID, 10))
	q.Set("order", "position.asc,verse_number.asc")
	var rows []verseRow
	if err := s.do(ctx, http.MethodGet, "verses", q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("get verses: %w", err)
	}
	out := lo.Map(rows, func(r verseRow, _ int) entity.VerseRecord {
		return entity.VerseRecord{
			Key:         entity.VerseKey(r.VerseNumber),
			Script:      r.Script,
			Romanized:   r.Romanized,
			Gloss:       r.Gloss,
			Translation: r.Translation,
			Commentary:  r.Commentary,
			Covers:      splitCovers(r.Covers),
		}
	})
	sortVerses(out)
	return out, nil
}

func (s *RestStore) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	entries = lo.UniqBy(entries, func(e entity.LexiconEntry) int64 { return e.ID })
	if len(entries) == 0 {
		return nil
	}
	rows := lo.Map(entries, func(e entity.LexiconEntry, _ int) lexiconRow { return lexiconRow(e) })
	if err := s.upsert(ctx, "lexicon_entries", "id", rows, nil); err != nil {
		return fmt.Errorf("upsert lexicon ids %d..%d: %w", entries[0].ID, entries[len(entries)-1].ID, err)
	}
	return nil
}

func (s *RestStore) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	var rows []lexiconRow
	if err := s.do(ctx, http.MethodGet, "lexicon_entries", q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("get lexicon: %w", err)
	}
	if len(rows) == 0 {
		return nil, entity.ErrLexiconNotFound
	}
	e := entity.LexiconEntry(rows[0])
	return &e, nil
}

func (s *RestStore) SearchLexicon(ctx context.Context, query *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	q := url.Values{}
	if query.Prefix != "" {
		q.Set("normalized_headword", "like."+query.Prefix+"*")
	}
	q.Set("order", "normalized_headword.asc,id.asc")
	q.Set("limit", strconv.Itoa(int(query.Limit(defaultSearchLimit))))
	if off := query.Offset(); off > 0 {
		q.Set("offset", strconv.Itoa(int(off)))
	}
	var rows []lexiconRow
	if err := s.do(ctx, http.MethodGet, "lexicon_entries", q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("search lexicon: %w", err)
	}
	return lo.Map(rows, func(r lexiconRow, _ int) entity.LexiconEntry { return entity.LexiconEntry(r) }), nil
}

// UpsertTranscript is not atomic over REST: the paragraphs are replaced
// after the transcript row is written.
func (s *RestStore) UpsertTranscript(ctx context.Context, t *entity.Transcript) (int64, error) {
	if t.Slug == "" {
		return 0, fmt.Errorf("transcript slug is required")
	}
	row := transcriptRow{
		Slug:        t.Slug,
		Kind:        string(t.Kind),
		Title:       t.Title,
		Date:        t.Meta.Date,
		Location:    t.Meta.Location,
		AudioURL:    t.Meta.AudioURL,
		Category:    t.Meta.Category,
		Recipient:   t.Meta.Recipient,
		BookSlug:    t.Meta.BookSlug,
		VerseRef:    t.Meta.VerseRef,
		Body:        t.Body,
		ContentHash: t.ContentHash,
		UpdatedAt:   s.now(),
	}
	var out []transcriptRow
	if err := s.upsert(ctx, "transcripts", "slug", []transcriptRow{row}, &out); err != nil {
		return 0, fmt.Errorf("upsert transcript %s: %w", t.Slug, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("upsert transcript %s: empty representation", t.Slug)
	}
	id := out[0].ID

	q := url.Values{}
	q.Set("transcript_id", "eq."+strconv.FormatInt(id, 10))
	if err := s.do(ctx, http.MethodDelete, "transcript_paragraphs", q, nil, nil, nil); err != nil {
		return 0, fmt.Errorf("clear paragraphs: %w", err)
	}
	if len(t.Paragraphs) > 0 {
		paragraphs := lo.Map(t.Paragraphs, func(p string, i int) paragraphRow {
			return paragraphRow{Position: i + 1, Text: p, TranscriptID: id}
		})
		if err := s.do(ctx, http.MethodPost, "transcript_paragraphs", nil, nil, paragraphs, nil); err != nil {
			return 0, fmt.Errorf("insert paragraphs: %w", err)
		}
	}
	t.ID = id
	return id, nil
}

func (s *RestStore) GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error) {
	q := url.Values{}
	q.Set("slug", "eq."+slug)
	var rows []transcriptRow
	if err := s.do(ctx, http.MethodGet, "transcripts", q, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	if len(rows) == 0 {
		return nil, entity.ErrTranscriptNotFound
	}
	r := rows[0]
	t := &entity.Transcript{
		ID:    r.ID,
		Slug:  r.Slug,
		Kind:  entity.ParseTranscriptKind(r.Kind),
		Title: r.Title,
		Meta: entity.TranscriptMeta{
			Date:      r.Date,
			Location:  r.Location,
			AudioURL:  r.AudioURL,
			Category:  r.Category,
			Recipient: r.Recipient,
			BookSlug:  r.BookSlug,
			VerseRef:  r.VerseRef,
		},
		Body:        r.Body,
		ContentHash: r.ContentHash,
	}

	q = url.Values{}
	q.Set("select", "position,text")
	q.Set("transcript_id", "eq."+strconv.FormatInt(r.ID, 10))
	q.Set("order", "position.asc")
	var paragraphs []paragraphRow
	if err := s.do(ctx, http.MethodGet, "transcript_paragraphs", q, nil, nil, &paragraphs); err != nil {
		return nil, fmt.Errorf("get paragraphs: %w", err)
	}
	if len(paragraphs) > 0 {
		t.Paragraphs = lo.Map(paragraphs, func(p paragraphRow, _ int) string { return p.Text })
	}
	return t, nil
}

func (s *RestStore) upsert(ctx context.Context, table, conflict string, rows, out any) error {
	q := url.Values{}
	q.Set("on_conflict", conflict)
	prefer := "resolution=merge-duplicates,return=minimal"
	if out != nil {
		prefer = "resolution=merge-duplicates,return=representation"
	}
	return s.do(ctx, http.MethodPost, table, q, http.Header{"Prefer": {prefer}}, rows, out)
}

func (s *RestStore) do(ctx context.Context, method, table string, q url.Values, header http.Header, body, out any) error {
	target := s.base + "/" + table
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s rows: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.schema != "" {
		req.Header.Set("Accept-Profile", s.schema)
		req.Header.Set("Content-Profile", s.schema)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Method: method, Path: table, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}
