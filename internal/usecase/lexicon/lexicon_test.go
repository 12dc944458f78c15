package lexicon

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/repository"
	"github.com/eslsoft/vidya/pkg/retry"
)

func strp(s string) *string { return &s }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// mockLexiconRepo records upserted batches and fails when failOn says so.
type mockLexiconRepo struct {
	batches [][]entity.LexiconEntry
	calls   int
	failOn  func(batch []entity.LexiconEntry) error
}

func (m *mockLexiconRepo) UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error {
	m.calls++
	if m.failOn != nil {
		if err := m.failOn(entries); err != nil {
			return err
		}
	}
	m.batches = append(m.batches, append([]entity.LexiconEntry(nil), entries...))
	return nil
}
func (m *mockLexiconRepo) GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error) {
	return nil, errors.New("not implemented")
}
func (m *mockLexiconRepo) SearchLexicon(ctx context.Context, q *repository.SearchLexiconQuery) ([]entity.LexiconEntry, error) {
	return nil, errors.New("not implemented")
}

func (m *mockLexiconRepo) ids() []int64 {
	var out []int64
	for _, b := range m.batches {
		for _, e := range b {
			out = append(out, e.ID)
		}
	}
	return out
}

var noDelay = retry.Policy{MaxAttempts: 3}

func TestParseRow(t *testing.T) {
	got, err := ParseRow("42\tkṛṣṇa\tn\t\tblack, dark")
	if err != nil {
		t.Fatalf("ParseRow returned error: %v", err)
	}
	want := entity.LexiconEntry{
		ID:                 42,
		Headword:           "kṛṣṇa",
		ScriptForm:         "कृष्ण",
		GrammarTag:         strp("n"),
		Preverbs:           nil,
		Gloss:              strp("black, dark"),
		NormalizedHeadword: "krsna",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRowRejects(t *testing.T) {
	cases := []string{
		"abc\tword",
		"7\t",
		"7",
		"\tword",
	}
	for _, line := range cases {
		if _, err := ParseRow(line); !errors.Is(err, entity.ErrInvalidLexiconRow) {
			t.Fatalf("ParseRow(%q): expected ErrInvalidLexiconRow, got %v", line, err)
		}
	}
}

func TestParseRowShortLine(t *testing.T) {
	got, err := ParseRow("9\tdharma\r")
	if err != nil {
		t.Fatalf("ParseRow returned error: %v", err)
	}
	if got.Headword != "dharma" || got.GrammarTag != nil || got.Gloss != nil || got.ScriptForm != "धर्म" {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestReaderSkipsHeaderAndBadRows(t *testing.T) {
	input := strings.Join([]string{
		"id\tword\tgrammar\tpreverbs\tmeanings",
		"1\tdeva\tm\t\tgod",
		"x\tbroken",
		"",
		"2\t\tm",
		"3\tagni\tm\t\tfire",
	}, "\n")
	r := NewReader(strings.NewReader(input))
	var ids []int64
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]int64{1, 3}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if r.Skipped() != 2 || r.Line() != 6 {
		t.Fatalf("skipped %d line %d", r.Skipped(), r.Line())
	}
}

func TestReaderWithoutHeader(t *testing.T) {
	input := "42\tkṛṣṇa\tn\t\tblack, dark\n43\tdharma\tm\t\tlaw\n"
	r := NewReader(strings.NewReader(input))
	var ids []int64
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]int64{42, 43}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if r.Skipped() != 0 {
		t.Fatalf("skipped %d", r.Skipped())
	}
}

func TestReaderCountsBrokenFirstRow(t *testing.T) {
	// a numeric first column is data, so a broken first row is counted
	r := NewReader(strings.NewReader("7\t\n8\tagni\n"))
	e, err := r.Next()
	if err != nil || e.ID != 8 {
		t.Fatalf("got %+v, %v", e, err)
	}
	if r.Skipped() != 1 {
		t.Fatalf("skipped %d", r.Skipped())
	}
}

func dictionary(n int) string {
	var b strings.Builder
	b.WriteString("id\tword\tgrammar\tpreverbs\tmeanings\n")
	for i := 1; i <= n; i++ {
		b.WriteString(strings.Join([]string{strconv.Itoa(i), "deva", "m", "", "god"}, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

func TestImportBatches(t *testing.T) {
	repo := &mockLexiconRepo{}
	imp := NewImporter(repo, quietLogger(), WithBatchSize(2), WithRetryPolicy(noDelay))

	report, err := imp.Import(context.Background(), strings.NewReader(dictionary(5)))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if report.Read != 5 || report.Imported != 5 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(repo.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(repo.batches))
	}
	if diff := cmp.Diff([]int64{1, 2, 3, 4, 5}, repo.ids()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestImportContinuesAfterExhaustedBatch(t *testing.T) {
	repo := &mockLexiconRepo{failOn: func(batch []entity.LexiconEntry) error {
		if batch[0].ID == 3 {
			return errors.New("connection reset")
		}
		return nil
	}}
	imp := NewImporter(repo, quietLogger(), WithBatchSize(2), WithRetryPolicy(noDelay))

	report, err := imp.Import(context.Background(), strings.NewReader(dictionary(5)))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if report.Imported != 3 || report.Failed != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff([]IDRange{{First: 3, Last: 4}}, report.FailedBatches); diff != "" {
		t.Fatalf("failed batches mismatch (-want +got):\n%s", diff)
	}
	// 1 + 3 attempts + 1
	if repo.calls != 5 {
		t.Fatalf("expected 5 upsert calls, got %d", repo.calls)
	}
}

func TestImportRowFallback(t *testing.T) {
	repo := &mockLexiconRepo{failOn: func(batch []entity.LexiconEntry) error {
		for _, e := range batch {
			if e.ID == 4 {
				return errors.New("bad row")
			}
		}
		return nil
	}}
	imp := NewImporter(repo, quietLogger(), WithBatchSize(2), WithRetryPolicy(noDelay), WithRowFallback())

	report, err := imp.Import(context.Background(), strings.NewReader(dictionary(4)))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if report.Imported != 3 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, repo.ids()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestImportDryRun(t *testing.T) {
	repo := &mockLexiconRepo{}
	imp := NewImporter(repo, quietLogger(), WithDryRun(true))

	report, err := imp.Import(context.Background(), strings.NewReader(dictionary(3)))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if !report.DryRun || report.Imported != 3 || repo.calls != 0 {
		t.Fatalf("dry run wrote to the store: %+v calls=%d", report, repo.calls)
	}
}

func TestImportFileMissing(t *testing.T) {
	repo := &mockLexiconRepo{}
	imp := NewImporter(repo, quietLogger())

	_, err := imp.ImportFile(context.Background(), filepath.Join(t.TempDir(), "absent.tsv"))
	if !errors.Is(err, entity.ErrDictionaryNotFound) {
		t.Fatalf("expected ErrDictionaryNotFound, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("store touched before precondition check")
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.tsv")
	if err := os.WriteFile(path, []byte(dictionary(2)), 0o644); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	repo := &mockLexiconRepo{}
	report, err := NewImporter(repo, quietLogger()).ImportFile(context.Background(), path)
	if err != nil || report.Imported != 2 {
		t.Fatalf("ImportFile = %+v, %v", report, err)
	}
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := &mockLexiconRepo{failOn: func([]entity.LexiconEntry) error {
		cancel()
		return errors.New("timeout")
	}}
	imp := NewImporter(repo, quietLogger(), WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: 1}))

	if _, err := imp.Import(ctx, strings.NewReader(dictionary(1))); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
