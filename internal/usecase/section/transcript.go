package section

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eslsoft/vidya/internal/entity"
)

type headerPatterns struct {
	title     *regexp.Regexp
	heading   *regexp.Regexp
	date      *regexp.Regexp
	location  *regexp.Regexp
	category  *regexp.Regexp
	recipient *regexp.Regexp
	audio     *regexp.Regexp
}

func newHeaderPatterns() headerPatterns {
	return headerPatterns{
		title:     regexp.MustCompile(`~~Title:\s*(.+?)~~`),
		heading:   regexp.MustCompile(`^={2,6}\s*(.+?)\s*={2,6}$`),
		date:      regexp.MustCompile(`(?i)^\s*(?:listdate_hidden|date)\s*:\s*(\d{4}-\d{2}-\d{2})`),
		location:  regexp.MustCompile(`(?i)^\s*(?:place_spoken|place_letter|location)\s*:\s*(.+?)\s*$`),
		category:  regexp.MustCompile(`(?i)^\s*(?:type_spoken|category)\s*:\s*(.+?)\s*$`),
		recipient: regexp.MustCompile(`(?i)^\s*(?:to_letters|recipient_hidden)\s*:\s*(.+?)\s*$`),
		audio:     regexp.MustCompile(`\{\{(https?://[^|}\s]+\.mp3)`),
	}
}

var (
	markupTag       = regexp.MustCompile(`~~[^~]+~~`)
	dataEntryBlock  = regexp.MustCompile(`(?s)----\s*dataentry.*?\n----`)
	audioTag        = regexp.MustCompile(`<audio>[^<]*</audio>`)
	includeTag      = regexp.MustCompile(`\{\{[^}]+\}\}`)
	headingMarkup   = regexp.MustCompile(`(?m)^={2,6}\s*(.+?)\s*={2,6}\s*$`)
	labelledLink    = regexp.MustCompile(`\[\[[^\]|]+\|([^\]]+)\]\]`)
	bareLink        = regexp.MustCompile(`\[\[[^\]]+\]\]`)
	forcedBreak     = regexp.MustCompile(`\\\\ ?`)
	nowikiDash      = regexp.MustCompile(`%%--%% ?`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
	paragraphBreak  = regexp.MustCompile(`\n\s*\n`)
	filenameDate    = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})`)
	filenameLocCode = regexp.MustCompile(`\.([a-z]+)$`)
)

// ParseTranscript lifts header fields out of a non-verse document and returns
// the cleaned body split into paragraphs. Each header field keeps its first
// occurrence; the header scan ends at the first blank line after body text
// has started.
func (p *Parser) ParseTranscript(raw string) entity.Transcript {
	var (
		t        entity.Transcript
		body     []string
		started  bool
		finished bool
	)
	for _, line := range strings.Split(normalizeNewlines(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if finished {
			body = append(body, line)
			continue
		}
		if trimmed == "" {
			if started {
				finished = true
			}
			body = append(body, line)
			continue
		}
		if p.takeHeader(&t, trimmed) {
			continue
		}
		if !isMarkupLine(trimmed) {
			started = true
		}
		body = append(body, line)
	}

	cleaned := CleanMarkup(strings.Join(body, "\n"))
	for _, para := range paragraphBreak.Split(cleaned, -1) {
		if para = strings.TrimSpace(para); para != "" {
			t.Paragraphs = append(t.Paragraphs, para)
		}
	}
	t.Body = strings.Join(t.Paragraphs, "\n\n")
	return t
}

// takeHeader consumes line when it carries a header field not yet seen.
// Lines repeating an already captured field are consumed as well.
func (p *Parser) takeHeader(t *entity.Transcript, line string) bool {
	h := p.header
	consumed := false
	if m := h.title.FindStringSubmatch(line); m != nil {
		if t.Title == "" {
			t.Title = strings.TrimSpace(m[1])
		}
		consumed = strings.TrimSpace(h.title.ReplaceAllString(line, "")) == ""
	}
	if m := h.audio.FindStringSubmatch(line); m != nil {
		if t.Meta.AudioURL == nil {
			t.Meta.AudioURL = strPtr(m[1])
		}
		consumed = true
	}
	if m := h.date.FindStringSubmatch(line); m != nil {
		if t.Meta.Date == nil {
			if d, err := time.Parse(time.DateOnly, m[1]); err == nil {
				t.Meta.Date = &d
			}
		}
		return true
	}
	if m := h.location.FindStringSubmatch(line); m != nil {
		if t.Meta.Location == nil && m[1] != "" {
			t.Meta.Location = strPtr(m[1])
		}
		return true
	}
	if m := h.category.FindStringSubmatch(line); m != nil {
		if t.Meta.Category == nil && m[1] != "" {
			t.Meta.Category = strPtr(m[1])
		}
		return true
	}
	if m := h.recipient.FindStringSubmatch(line); m != nil {
		if t.Meta.Recipient == nil && m[1] != "" {
			t.Meta.Recipient = strPtr(m[1])
		}
		return true
	}
	if t.Title == "" {
		if m := h.heading.FindStringSubmatch(line); m != nil {
			t.Title = strings.TrimSpace(m[1])
			return true
		}
	}
	return consumed
}

func isMarkupLine(line string) bool {
	return strings.HasPrefix(line, "----") ||
		strings.HasPrefix(line, "~~") ||
		strings.HasPrefix(line, "{{") ||
		strings.HasPrefix(line, "<audio>")
}

// CleanMarkup strips wiki markup from a transcript body.
func CleanMarkup(s string) string {
	s = normalizeNewlines(s)
	s = dataEntryBlock.ReplaceAllString(s, "")
	s = markupTag.ReplaceAllString(s, "")
	s = audioTag.ReplaceAllString(s, "")
	s = includeTag.ReplaceAllString(s, "")
	s = headingMarkup.ReplaceAllString(s, "$1\n")
	s = labelledLink.ReplaceAllString(s, "$1")
	s = bareLink.ReplaceAllString(s, "")
	s = forcedBreak.ReplaceAllString(s, "\n")
	s = nowikiDash.ReplaceAllString(s, "")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FilenameHints holds what a transcript file name reveals on its own.
type FilenameHints struct {
	Slug         string
	Date         *time.Time
	LocationCode string
}

// HintsFromFilename reads a name such as "690412sb.ny.txt": a YYMMDD date
// prefix and a trailing location code. Two-digit years above 50 are 19xx.
func HintsFromFilename(name string) FilenameHints {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	hints := FilenameHints{Slug: slugify(stem)}

	if m := filenameDate.FindStringSubmatch(stem); m != nil {
		yy, _ := strconv.Atoi(m[1])
		year := 2000 + yy
		if yy > 50 {
			year = 1900 + yy
		}
		if d, err := time.Parse(time.DateOnly, strconv.Itoa(year)+"-"+m[2]+"-"+m[3]); err == nil {
			hints.Date = &d
		}
	}
	if m := filenameLocCode.FindStringSubmatch(stem); m != nil {
		hints.LocationCode = m[1]
	}
	return hints
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9_.-]+`)

func slugify(s string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func strPtr(s string) *string { return &s }
