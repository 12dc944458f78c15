package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eslsoft/vidya/internal/entity"
)

func TestSelectItems(t *testing.T) {
	items := []string{"uk/ch01.txt", "uk/ch02.txt", "uk/ch03.txt", "uk/ch10.txt"}
	col := entity.Collection{Name: "bg"}

	cases := []struct {
		name string
		req  Request
		want []string
	}{
		{"all", Request{}, items},
		{"by stem", Request{Item: "ch02"}, []string{"uk/ch02.txt"}},
		{"by path", Request{Item: "uk/ch03.txt"}, []string{"uk/ch03.txt"}},
		{"where number", Request{Where: "number >= 3"}, []string{"uk/ch03.txt", "uk/ch10.txt"}},
		{"where name", Request{Where: `name.startsWith("ch0") && index > 0`}, []string{"uk/ch02.txt", "uk/ch03.txt"}},
		{"limit after where", Request{Where: "number > 1", Limit: 2}, []string{"uk/ch02.txt", "uk/ch03.txt"}},
		{"nothing", Request{Item: "ch99"}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := selectItems(col, items, c.req)
			if err != nil {
				t.Fatalf("selectItems: %v", err)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectItemsBadExpression(t *testing.T) {
	if _, err := selectItems(entity.Collection{}, []string{"a.txt"}, Request{Where: "missing == 1"}); err == nil {
		t.Fatal("expected compile error for an unknown variable")
	}
}

func TestPacerSpacesCalls(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration
	p := NewPacer(time.Second)
	p.now = func() time.Time { return clock }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		clock = clock.Add(d)
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		clock = clock.Add(300 * time.Millisecond)
	}
	want := []time.Duration{700 * time.Millisecond, 700 * time.Millisecond}
	if diff := cmp.Diff(want, slept); diff != "" {
		t.Fatalf("sleeps (-want +got):\n%s", diff)
	}
}

func TestPacerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewPacer(time.Second).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEnrichTranscriptKeepsUnknownLocation(t *testing.T) {
	loc := "Vrindavana"
	tr := entity.Transcript{Meta: entity.TranscriptMeta{Location: &loc}, Body: "text"}
	enrichTranscript(&tr, entity.TranscriptKindLetter, "letters/700101_xyz.txt")

	if tr.Slug != "700101_xyz" || tr.Title != "700101_xyz" {
		t.Fatalf("slug %q title %q", tr.Slug, tr.Title)
	}
	if *tr.Meta.Location != "Vrindavana" {
		t.Fatalf("location %q", *tr.Meta.Location)
	}
	if tr.Meta.Category != nil || tr.Meta.BookSlug != nil {
		t.Fatalf("letters carry no category or book, got %+v", tr.Meta)
	}
	if tr.Kind != entity.TranscriptKindLetter || tr.ContentHash != ContentHash("text") {
		t.Fatalf("unexpected transcript %+v", tr)
	}
}

func TestLinkScripture(t *testing.T) {
	cases := []struct {
		item, title string
		book, verse string
	}{
		{"lectures/660713bg.ny.txt", "Lecture on Bhagavad-gita 4.1", "bg", "4.1"},
		{"lectures/741020sb.may.txt", "Srimad-Bhagavatam 1.7.23-24", "sb", "1.7.23-24"},
		{"lectures/750415cc.vrn.txt", "Sri Caitanya-caritamrta", "cc", ""},
		{"lectures/720101ar.bom.txt", "Arrival Address", "", ""},
	}
	for _, c := range cases {
		tr := entity.Transcript{Title: c.title}
		enrichTranscript(&tr, entity.TranscriptKindLecture, c.item)
		if got := deref(tr.Meta.BookSlug); got != c.book {
			t.Fatalf("%s: book %q want %q", c.item, got, c.book)
		}
		if got := deref(tr.Meta.VerseRef); got != c.verse {
			t.Fatalf("%s: verse %q want %q", c.item, got, c.verse)
		}
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func TestPhaseString(t *testing.T) {
	if PhaseFailedItem.String() != "failed_item" || PhaseListing.String() != "listing" {
		t.Fatalf("unexpected phase names %s %s", PhaseFailedItem, PhaseListing)
	}
}
