// Package lexicon reads the tab-separated dictionary export and loads it into
// the lexicon store.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/pkg/normalize"
	"github.com/eslsoft/vidya/pkg/translit"
)

const maxLineSize = 1 << 20

// Column order of the dictionary export.
const (
	colID = iota
	colHeadword
	colGrammar
	colPreverbs
	colGloss
)

// Build derives the script form and normalized headword for a romanized
// headword. Empty optional values become nil.
func Build(id int64, headword, grammar, preverbs, gloss string) entity.LexiconEntry {
	return entity.LexiconEntry{
		ID:                 id,
		Headword:           headword,
		ScriptForm:         translit.Transliterate(headword).String(),
		GrammarTag:         optional(grammar),
		Preverbs:           optional(preverbs),
		Gloss:              optional(gloss),
		NormalizedHeadword: normalize.Key(headword),
	}
}

// ParseRow parses one data row. Rows without a numeric id or a headword are
// rejected with entity.ErrInvalidLexiconRow.
func ParseRow(line string) (entity.LexiconEntry, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if len(fields) < 2 {
		return entity.LexiconEntry{}, fmt.Errorf("%w: %d column(s)", entity.ErrInvalidLexiconRow, len(fields))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fields[colID]), 10, 64)
	if err != nil {
		return entity.LexiconEntry{}, fmt.Errorf("%w: id %q", entity.ErrInvalidLexiconRow, fields[colID])
	}
	headword := strings.TrimSpace(fields[colHeadword])
	if headword == "" {
		return entity.LexiconEntry{}, fmt.Errorf("%w: id %d has no headword", entity.ErrInvalidLexiconRow, id)
	}
	return Build(id, headword, column(fields, colGrammar), column(fields, colPreverbs), column(fields, colGloss)), nil
}

// Reader streams entries from a dictionary export. A first line without a
// numeric id is a header and is dropped uncounted; later invalid rows are
// counted and skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	skipped int
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64<<10), maxLineSize)
	return &Reader{scanner: s}
}

// Next returns the next valid entry, or io.EOF when the input is exhausted.
func (r *Reader) Next() (entity.LexiconEntry, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		entry, err := ParseRow(text)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidLexiconRow) {
				if r.line > 1 || !isHeader(text) {
					r.skipped++
				}
				continue
			}
			return entity.LexiconEntry{}, err
		}
		return entry, nil
	}
	if err := r.scanner.Err(); err != nil {
		return entity.LexiconEntry{}, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return entity.LexiconEntry{}, io.EOF
}

// Line is the number of lines consumed so far, header included.
func (r *Reader) Line() int { return r.line }

// Skipped is the number of invalid data rows seen so far.
func (r *Reader) Skipped() int { return r.skipped }

func isHeader(line string) bool {
	id := strings.TrimSpace(strings.SplitN(line, "\t", 2)[0])
	_, err := strconv.ParseInt(id, 10, 64)
	return err != nil
}

func column(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
