package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database/dbtest"
	"github.com/eslsoft/vidya/internal/repository"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db := dbtest.Open(t, dbtest.DSN(t, "store"))
	return NewSQLStore(db, config.DriverSQLite)
}

func strp(s string) *string { return &s }

func TestSQLStore_ChapterAndVerses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ch := &entity.Chapter{Book: "bg", Number: 2, Title: "Contents of the Gita"}
	id, err := store.UpsertChapter(ctx, ch)
	if err != nil {
		t.Fatalf("upsert chapter: %v", err)
	}
	again, err := store.UpsertChapter(ctx, &entity.Chapter{Book: "bg", Number: 2, Title: "Summary"})
	if err != nil {
		t.Fatalf("re-upsert chapter: %v", err)
	}
	if again != id {
		t.Fatalf("chapter id changed on re-upsert: %d -> %d", id, again)
	}
	found, err := store.FindChapter(ctx, "bg", 0, 2)
	if err != nil || found.Title != "Summary" {
		t.Fatalf("find chapter: %+v %v", found, err)
	}

	records := []entity.VerseRecord{
		{Key: "10-11", Translation: "range", Covers: []entity.VerseKey{"10", "11"}},
		{Key: "2", Script: "श्लोक", Translation: "two"},
		{Key: "9", Translation: "nine"},
	}
	if err := store.UpsertVerses(ctx, id, records); err != nil {
		t.Fatalf("upsert verses: %v", err)
	}
	// idempotent re-run overwrites in place
	records[1].Translation = "two, revised"
	if err := store.UpsertVerses(ctx, id, records[1:2]); err != nil {
		t.Fatalf("re-upsert verses: %v", err)
	}

	got, err := store.GetVerses(ctx, id)
	if err != nil {
		t.Fatalf("get verses: %v", err)
	}
	want := []entity.VerseRecord{
		{Key: "2", Script: "श्लोक", Translation: "two, revised"},
		{Key: "9", Translation: "nine"},
		{Key: "10-11", Translation: "range", Covers: []entity.VerseKey{"10", "11"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("verses mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLStore_FindChapterMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.FindChapter(context.Background(), "sb", 1, 1); !errors.Is(err, entity.ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
	if _, err := store.UpsertChapter(context.Background(), &entity.Chapter{Book: "sb"}); !errors.Is(err, entity.ErrInvalidChapter) {
		t.Fatalf("expected ErrInvalidChapter, got %v", err)
	}
}

func TestSQLStore_Lexicon(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []entity.LexiconEntry{
		{ID: 42, Headword: "kṛṣṇa", ScriptForm: "कृष्ण", GrammarTag: strp("n"), Gloss: strp("black, dark"), NormalizedHeadword: "krsna"},
		{ID: 43, Headword: "kṣetra", ScriptForm: "क्षेत्र", NormalizedHeadword: "ksetra"},
		{ID: 44, Headword: "karma", ScriptForm: "कर्म", NormalizedHeadword: "karma"},
	}
	if err := store.UpsertLexicon(ctx, entries); err != nil {
		t.Fatalf("upsert lexicon: %v", err)
	}
	if err := store.UpsertLexicon(ctx, entries[:1]); err != nil {
		t.Fatalf("re-upsert lexicon: %v", err)
	}

	got, err := store.GetLexicon(ctx, 42)
	if err != nil {
		t.Fatalf("get lexicon: %v", err)
	}
	if diff := cmp.Diff(&entries[0], got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
	if got.Preverbs != nil {
		t.Fatalf("empty preverbs must stay nil, got %q", *got.Preverbs)
	}

	hits, err := store.SearchLexicon(ctx, &repository.SearchLexiconQuery{Prefix: "k"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var words []string
	for _, h := range hits {
		words = append(words, h.NormalizedHeadword)
	}
	if diff := cmp.Diff([]string{"karma", "krsna", "ksetra"}, words); diff != "" {
		t.Fatalf("search order mismatch (-want +got):\n%s", diff)
	}

	page, err := store.SearchLexicon(ctx, &repository.SearchLexiconQuery{
		Prefix:     "k",
		Pagination: repository.Pagination{PageNo: 2, PageSize: 2},
	})
	if err != nil || len(page) != 1 || page[0].ID != 43 {
		t.Fatalf("second page %+v %v", page, err)
	}

	if _, err := store.GetLexicon(ctx, 7); !errors.Is(err, entity.ErrLexiconNotFound) {
		t.Fatalf("expected ErrLexiconNotFound, got %v", err)
	}
}

func TestSQLStore_Transcript(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	date := time.Date(1966, 7, 13, 0, 0, 0, 0, time.UTC)
	tr := &entity.Transcript{
		Slug:        "660713bg.ny",
		Kind:        entity.TranscriptKindLecture,
		Title:       "Lecture on Bhagavad-gita 4.1",
		Meta:        entity.TranscriptMeta{Date: &date, Location: strp("New York"), BookSlug: strp("bg"), VerseRef: strp("4.1")},
		Body:        "one\n\ntwo\n\nthree",
		Paragraphs:  []string{"one", "two", "three"},
		ContentHash: "abc",
	}
	id, err := store.UpsertTranscript(ctx, tr)
	if err != nil {
		t.Fatalf("upsert transcript: %v", err)
	}

	tr.Paragraphs = []string{"one", "two"}
	tr.Body = "one\n\ntwo"
	again, err := store.UpsertTranscript(ctx, tr)
	if err != nil || again != id {
		t.Fatalf("re-upsert transcript: id %d->%d err %v", id, again, err)
	}

	got, err := store.GetTranscript(ctx, "660713bg.ny")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, got.Paragraphs); diff != "" {
		t.Fatalf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	if got.Meta.Date == nil || !got.Meta.Date.Equal(date) {
		t.Fatalf("date %v", got.Meta.Date)
	}
	if got.Meta.Category != nil || got.Meta.Location == nil || *got.Meta.Location != "New York" {
		t.Fatalf("meta %+v", got.Meta)
	}
	if got.Meta.BookSlug == nil || *got.Meta.BookSlug != "bg" || got.Meta.VerseRef == nil || *got.Meta.VerseRef != "4.1" {
		t.Fatalf("scripture link %v %v", got.Meta.BookSlug, got.Meta.VerseRef)
	}

	if _, err := store.GetTranscript(ctx, "missing"); !errors.Is(err, entity.ErrTranscriptNotFound) {
		t.Fatalf("expected ErrTranscriptNotFound, got %v", err)
	}
}
