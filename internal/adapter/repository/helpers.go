package repository

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/vidya/internal/entity"
)

const defaultSearchLimit = 20

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func joinCovers(keys []entity.VerseKey) string {
	return strings.Join(lo.Map(keys, func(k entity.VerseKey, _ int) string { return string(k) }), ",")
}

func splitCovers(raw string) []entity.VerseKey {
	if raw == "" {
		return nil
	}
	return lo.Map(strings.Split(raw, ","), func(s string, _ int) entity.VerseKey { return entity.VerseKey(s) })
}

// uniqueVerses drops repeated keys; a single upsert statement may not touch
// the same row twice.
func uniqueVerses(records []entity.VerseRecord) []entity.VerseRecord {
	return lo.UniqBy(records, func(r entity.VerseRecord) entity.VerseKey { return r.Key })
}

func sortVerses(records []entity.VerseRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Key.Less(records[j].Key) })
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
