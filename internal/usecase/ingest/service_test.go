package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/internal/usecase/section"
	"github.com/eslsoft/vidya/pkg/retry"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var errFlaky = errors.New("connection reset")

// memSource serves items keyed by "repo:path". flaky holds how many times a
// key fails before it succeeds.
type memSource struct {
	files   map[string]string
	flaky   map[string]int
	fetches []string
}

func (m *memSource) List(ctx context.Context, col entity.Collection) ([]string, error) {
	var out []string
	prefix := col.Repo + ":" + col.Path + "/"
	for key := range m.files {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, col.Repo+":"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memSource) Fetch(ctx context.Context, col entity.Collection, itemPath string) (string, error) {
	key := col.Repo + ":" + itemPath
	m.fetches = append(m.fetches, key)
	if m.flaky[key] > 0 {
		m.flaky[key]--
		return "", errFlaky
	}
	body, ok := m.files[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", entity.ErrSourceNotFound, key)
	}
	return body, nil
}

// memStore is an in-memory repository.Store. failVerses makes every verse
// upsert whose first key matches fail.
type memStore struct {
	chapters    map[string]*entity.Chapter
	verses      map[int64][]entity.VerseRecord
	transcripts map[string]entity.Transcript
	failVerses   entity.VerseKey
	verseCalls   int
	chapterCalls int
}

func newMemStore() *memStore {
	return &memStore{
		chapters:    map[string]*entity.Chapter{},
		verses:      map[int64][]entity.VerseRecord{},
		transcripts: map[string]entity.Transcript{},
	}
}

func (m *memStore) UpsertChapter(ctx context.Context, ch *entity.Chapter) (int64, error) {
	m.chapterCalls++
	if err := ch.Validate(); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%s/%d/%d", ch.Book, ch.Part, ch.Number)
	if existing, ok := m.chapters[key]; ok {
		existing.Title = ch.Title
		ch.ID = existing.ID
		return ch.ID, nil
	}
	ch.ID = int64(len(m.chapters) + 1)
	stored := *ch
	m.chapters[key] = &stored
	return ch.ID, nil
}
func (m *memStore) FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error) {
	if ch, ok := m.chapters[fmt.Sprintf("%s/%d/%d", book, part, number)]; ok {
		return ch, nil
	}
	return nil, entity.ErrChapterNotFound
}
func (m *memStore) UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error {
	m.verseCalls++
	if m.failVerses != "" && records[0].Key == m.failVerses {
		return errors.New("statement timeout")
	}
	m.verses[chapterID] = append(m.verses[chapterID], records...)
	return nil
}
func (m *memStore) GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error) {
	return m.verses[chapterID], nil
}
func (m *memStore) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	return errors.New("not implemented")
}
func (m *memStore) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	return nil, errors.New("not implemented")
}
func (m *memStore) SearchLexicon(ctx context.Context, q *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	return nil, errors.New("not implemented")
}
func (m *memStore) UpsertTranscript(ctx context.Context, t *entity.Transcript) (int64, error) {
	t.ID = int64(len(m.transcripts) + 1)
	m.transcripts[t.Slug] = *t
	return t.ID, nil
}
func (m *memStore) GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error) {
	t, ok := m.transcripts[slug]
	if !ok {
		return nil, entity.ErrTranscriptNotFound
	}
	return &t, nil
}

const primaryChapter = `Глава друга
Зміст Ґіти

Текст 1
धर्म
dharma
Переклад
переклад один
Текст 2-3
Переклад
два і три
`

const secondaryChapter = `Chapter 2: Contents of the Gita
TEXT 1
Translation
translation one
TEXT 2
Translation
two
TEXT 3
Translation
three
TEXT 4
Translation
four
`

var gita = entity.Collection{
	Name:          "bg",
	Kind:          entity.CollectionVerses,
	Book:          "bg",
	Repo:          "owner/gita",
	Path:          "uk",
	SecondaryPath: "en",
}

var fastPolicy = retry.Policy{MaxAttempts: 3}

func newTestService(src Source, store repository.Store, opts ...Option) Service {
	opts = append([]Option{
		WithRetryPolicy(fastPolicy),
		WithFetchRetry(retry.Policy{MaxAttempts: 3, Retryable: defaultFetchRetryable}),
		WithRunID(func() string { return "run-1" }),
	}, opts...)
	return NewService(src, store, section.NewParser(), quietLogger(), opts...)
}

func TestRunMergesBothStreams(t *testing.T) {
	src := &memSource{files: map[string]string{
		"owner/gita:uk/ch02.txt": primaryChapter,
		"owner/gita:en/ch02.txt": secondaryChapter,
	}}
	store := newMemStore()

	report, err := newTestService(src, store).Run(context.Background(), Request{Collection: gita})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.RunID != "run-1" || report.Listed != 1 || report.Imported != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	ch, err := store.FindChapter(context.Background(), "bg", 0, 2)
	if err != nil {
		t.Fatalf("chapter not stored: %v", err)
	}
	if ch.Title != "Зміст Ґіти" {
		t.Fatalf("chapter title %q", ch.Title)
	}

	got := store.verses[ch.ID]
	want := []entity.VerseRecord{
		{
			Key: "1", Script: "धर्म", Romanized: "dharma", Translation: "translation one",
			Sources: map[entity.Field]entity.Stream{
				entity.FieldScript:      entity.StreamSource,
				entity.FieldRomanized:   entity.StreamSource,
				entity.FieldTranslation: entity.StreamTarget,
			},
		},
		{
			Key: "2-3", Translation: "two\n\nthree",
			Sources: map[entity.Field]entity.Stream{entity.FieldTranslation: entity.StreamTarget},
			Covers:  []entity.VerseKey{"2", "3"},
		},
		{
			Key: "4", Translation: "four",
			Sources: map[entity.Field]entity.Stream{entity.FieldTranslation: entity.StreamTarget},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("verses mismatch (-want +got):\n%s", diff)
	}
	if report.VersesWritten != 3 || report.IncompleteVerses != 0 {
		t.Fatalf("counters %+v", report)
	}
}

func TestRunFailedItemDoesNotHalt(t *testing.T) {
	// ch01 is listed but cannot be fetched from either stream
	src := &memSource{files: map[string]string{"owner/gita:uk/ch02.txt": primaryChapter}}
	lister := &fixedList{memSource: src, items: []string{"uk/ch01.txt", "uk/ch02.txt"}}
	store := newMemStore()

	report, err := newTestService(lister, store).Run(context.Background(), Request{Collection: gita})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Failed != 1 || report.Imported != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff([]string{"uk/ch01.txt"}, report.FailedItems); diff != "" {
		t.Fatalf("failed items (-want +got):\n%s", diff)
	}
	// not-found is never retried: one primary and one secondary fetch per item
	if n := countPrefix(src.fetches, "owner/gita:uk/ch01.txt"); n != 1 {
		t.Fatalf("ch01 fetched %d times", n)
	}
	// primary only: translations come from the source stream
	ch, _ := store.FindChapter(context.Background(), "bg", 0, 2)
	if v := store.verses[ch.ID]; len(v) != 2 || v[0].Translation != "переклад один" {
		t.Fatalf("unexpected verses %+v", v)
	}
}

type fixedList struct {
	*memSource
	items []string
}

func (f *fixedList) List(ctx context.Context, col entity.Collection) ([]string, error) {
	return f.items, nil
}

func countPrefix(list []string, prefix string) int {
	n := 0
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestRunRetriesTransientFetch(t *testing.T) {
	src := &memSource{
		files: map[string]string{"owner/gita:uk/ch02.txt": primaryChapter},
		flaky: map[string]int{"owner/gita:uk/ch02.txt": 2},
	}
	col := gita
	col.SecondaryPath = ""
	report, err := newTestService(src, newMemStore()).Run(context.Background(), Request{Collection: col})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Imported != 1 || len(src.fetches) != 3 {
		t.Fatalf("imported %d after %d fetches", report.Imported, len(src.fetches))
	}
}

func TestRunExhaustedBatchIsCounted(t *testing.T) {
	src := &memSource{files: map[string]string{
		"owner/gita:uk/ch02.txt": primaryChapter,
		"owner/gita:en/ch02.txt": secondaryChapter,
	}}
	store := newMemStore()
	store.failVerses = "2-3"

	report, err := newTestService(src, store, WithBatchSize(1)).Run(context.Background(), Request{Collection: gita})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.FailedBatches != 1 || report.VersesWritten != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	// batches 1 and 4 once each, batch 2-3 three times
	if store.verseCalls != 5 {
		t.Fatalf("expected 5 verse upserts, got %d", store.verseCalls)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	src := &memSource{files: map[string]string{
		"owner/gita:uk/ch02.txt": primaryChapter,
		"owner/gita:en/ch02.txt": secondaryChapter,
	}}
	report, err := newTestService(src, nil).Run(context.Background(), Request{Collection: gita, DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.DryRun || report.Imported != 1 || report.VersesWritten != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunWithoutStoreFails(t *testing.T) {
	if _, err := newTestService(&memSource{}, nil).Run(context.Background(), Request{Collection: gita}); err == nil {
		t.Fatal("expected an error without a store")
	}
}

func TestRunSkipsItemsWithoutVerses(t *testing.T) {
	src := &memSource{files: map[string]string{"owner/gita:uk/intro.txt": "Вступ\n\nПросто текст."}}
	col := gita
	col.SecondaryPath = ""
	report, err := newTestService(src, newMemStore()).Run(context.Background(), Request{Collection: col})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Skipped != 1 || report.Failed != 0 || report.Imported != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunSkipsChapterlessItemWithoutRetry(t *testing.T) {
	src := &memSource{files: map[string]string{"owner/gita:uk/preface.txt": "Передмова\n\nТекст 1\nПереклад\nвступне слово\n"}}
	col := gita
	col.SecondaryPath = ""
	store := newMemStore()
	svc := newTestService(src, store, WithRetryPolicy(retry.Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond}))

	report, err := svc.Run(context.Background(), Request{Collection: col})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Skipped != 1 || report.Failed != 0 || report.FailedBatches != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if store.chapterCalls != 0 || store.verseCalls != 0 {
		t.Fatalf("chapter calls %d verse calls %d", store.chapterCalls, store.verseCalls)
	}
}

func TestRunTranscripts(t *testing.T) {
	lecture := strings.Join([]string{
		"~~Title: Lecture on Bhagavad-gita 4.1~~",
		"Place_spoken: Somewhere",
		"{{https://example.org/audio/660713bg.mp3|audio}}",
		"",
		"First paragraph.",
		"",
		"Second paragraph.",
	}, "\n")
	src := &memSource{files: map[string]string{"owner/spoken:lectures/660713bg.ny.txt": lecture}}
	store := newMemStore()
	col := entity.Collection{Name: "lectures", Kind: entity.CollectionLectures, Repo: "owner/spoken", Path: "lectures"}

	report, err := newTestService(src, store).Run(context.Background(), Request{Collection: col})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.TranscriptsWritten != 1 || report.Imported != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	got, err := store.GetTranscript(context.Background(), "660713bg.ny")
	if err != nil {
		t.Fatalf("transcript not stored: %v", err)
	}
	if got.Title != "Lecture on Bhagavad-gita 4.1" || got.Kind != entity.TranscriptKindLecture {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if got.Meta.Location == nil || *got.Meta.Location != "New York" {
		t.Fatalf("location %v", got.Meta.Location)
	}
	if got.Meta.Category == nil || *got.Meta.Category != "Bhagavad-gita" {
		t.Fatalf("category %v", got.Meta.Category)
	}
	if got.Meta.Date == nil || got.Meta.Date.Format("2006-01-02") != "1966-07-13" {
		t.Fatalf("date %v", got.Meta.Date)
	}
	if got.Meta.BookSlug == nil || *got.Meta.BookSlug != "bg" || got.Meta.VerseRef == nil || *got.Meta.VerseRef != "4.1" {
		t.Fatalf("scripture link %v %v", got.Meta.BookSlug, got.Meta.VerseRef)
	}
	if diff := cmp.Diff([]string{"First paragraph.", "Second paragraph."}, got.Paragraphs); diff != "" {
		t.Fatalf("paragraphs (-want +got):\n%s", diff)
	}
	if got.ContentHash != ContentHash(got.Body) || len(got.ContentHash) != 64 {
		t.Fatalf("content hash %q", got.ContentHash)
	}
}

func TestRunCancelled(t *testing.T) {
	src := &memSource{files: map[string]string{"owner/gita:uk/ch02.txt": primaryChapter}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestService(src, newMemStore()).Run(ctx, Request{Collection: gita})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
