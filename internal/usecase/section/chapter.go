package section

import (
	"regexp"
	"strings"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/pkg/ordinal"
)

var (
	chapterLine     = regexp.MustCompile(`(?i)^(?:глава|розділ|chapter)(?:$|[^\p{L}])`)
	titleDecoration = regexp.MustCompile(`^[=#*\s]+|[=#*\s]+$`)
	bareTitleTag    = regexp.MustCompile(`^~~Title:\s*(.+?)~~$`)
)

// Heading resolves the chapter number and title from the text before the first
// verse. A heading such as "Глава сімнадцята" only names the number, so the
// next line is taken as the title.
func Heading(preamble string) (int, string) {
	var lines []string
	for _, line := range strings.Split(normalizeNewlines(preamble), "\n") {
		line = strings.TrimSpace(titleDecoration.ReplaceAllString(strings.TrimSpace(line), ""))
		if m := bareTitleTag.FindStringSubmatch(line); m != nil {
			line = strings.TrimSpace(m[1])
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		loc := chapterLine.FindStringIndex(line)
		if loc == nil {
			continue
		}
		number := ordinal.Resolve(line)
		rest := strings.TrimSpace(line[loc[1]:])
		if title := titleAfterNumber(rest); title != "" {
			return number, title
		}
		if i+1 < len(lines) && chapterLine.FindStringIndex(lines[i+1]) == nil {
			return number, lines[i+1]
		}
		return number, line
	}

	if len(lines) == 0 {
		return 0, ""
	}
	return ordinal.Resolve(lines[0]), lines[0]
}

// titleAfterNumber strips the number part of "17: Title". It returns "" when
// nothing but the number is left.
func titleAfterNumber(rest string) string {
	if rest == "" {
		return ""
	}
	if _, after, ok := strings.Cut(rest, ":"); ok {
		return strings.TrimSpace(after)
	}
	if name, _, ok := ordinal.Match(rest); ok && strings.Trim(ordinal.Clean(rest), " .,") == name {
		return ""
	}
	if onlyDigits(rest) {
		return ""
	}
	return strings.TrimLeft(rest, " .,-–—")
}

func onlyDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ParseChapter parses a single-stream chapter file into a block whose verses
// keep document order.
func (p *Parser) ParseChapter(raw string, stream entity.Stream) (entity.ChapterBlock, Document) {
	doc := p.Parse(raw)
	number, title := Heading(doc.Preamble)
	block := entity.ChapterBlock{Number: number, Title: title}
	for _, key := range doc.Order {
		block.Verses = append(block.Verses, entity.NewVerseRecord(key, doc.Verses[key], stream))
	}
	return block, doc
}
