// Package merge combines the verse fields of two parallel streams into one
// record per verse key.
package merge

import (
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/eslsoft/vidya/internal/entity"
)

// Precedence decides which stream wins the fields both streams may carry.
type Precedence int

const (
	// PreferTarget takes translation and commentary from the target stream.
	PreferTarget Precedence = iota
	// PreferSource takes every field from the source stream first.
	PreferSource
)

// structural fields always come from the source stream when present.
var structural = []entity.Field{entity.FieldScript, entity.FieldRomanized, entity.FieldGloss}

type options struct {
	precedence Precedence
	fold       bool
	expand     bool
}

// Option configures Merge.
type Option func(*options)

// WithPrecedence sets which stream wins translation and commentary.
func WithPrecedence(p Precedence) Option {
	return func(o *options) { o.precedence = p }
}

// WithRangeFolding lets a range key absorb the other stream's single keys that
// fall inside it.
func WithRangeFolding() Option {
	return func(o *options) { o.fold = true }
}

// WithRangeExpansion emits one record per verse number of every range record.
func WithRangeExpansion() Option {
	return func(o *options) { o.expand = true }
}

// Merge returns one record for every key present in a or b, ordered by verse
// number. A key found in a single stream yields a partial record.
func Merge(a, b map[entity.VerseKey]entity.FieldSet, opts ...Option) []entity.VerseRecord {
	o := options{precedence: PreferTarget}
	for _, opt := range opts {
		opt(&o)
	}

	a, b = clone(a), clone(b)
	covers := map[entity.VerseKey][]entity.VerseKey{}
	if o.fold {
		foldInto(a, b, covers)
		foldInto(b, a, covers)
	}

	keys := lo.Uniq(append(lo.Keys(a), lo.Keys(b)...))
	SortKeys(keys)

	records := make([]entity.VerseRecord, 0, len(keys))
	for _, key := range keys {
		rec := mergeOne(key, a[key], b[key], o.precedence)
		if c := covers[key]; len(c) > 0 {
			SortKeys(c)
			rec.Covers = c
		}
		records = append(records, rec)
	}

	if o.expand {
		records = expand(records)
	}
	return records
}

// SortKeys orders keys by start, then end, then lexically.
func SortKeys(keys []entity.VerseKey) {
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

func mergeOne(key entity.VerseKey, a, b entity.FieldSet, p Precedence) entity.VerseRecord {
	rec := entity.VerseRecord{Key: key}
	pick := func(f entity.Field, first, second entity.FieldSet, firstStream, secondStream entity.Stream) {
		if v, ok := first.Get(f); ok {
			rec.SetField(f, v)
			setSource(&rec, f, firstStream)
			return
		}
		if v, ok := second.Get(f); ok {
			rec.SetField(f, v)
			setSource(&rec, f, secondStream)
		}
	}

	for _, f := range structural {
		pick(f, a, b, entity.StreamSource, entity.StreamTarget)
	}
	for _, f := range []entity.Field{entity.FieldTranslation, entity.FieldCommentary} {
		if p == PreferSource {
			pick(f, a, b, entity.StreamSource, entity.StreamTarget)
		} else {
			pick(f, b, a, entity.StreamTarget, entity.StreamSource)
		}
	}
	return rec
}

func setSource(rec *entity.VerseRecord, f entity.Field, s entity.Stream) {
	if rec.Sources == nil {
		rec.Sources = make(map[entity.Field]entity.Stream, len(entity.Fields))
	}
	rec.Sources[f] = s
}

// foldInto moves singles of other that fall inside a range key of owner, when
// other does not carry that range itself, into a new range entry of other.
func foldInto(owner, other map[entity.VerseKey]entity.FieldSet, covers map[entity.VerseKey][]entity.VerseKey) {
	for rangeKey := range owner {
		if !rangeKey.IsRange() {
			continue
		}
		if _, ok := other[rangeKey]; ok {
			continue
		}
		var inside []entity.VerseKey
		for key := range other {
			if !key.IsRange() && rangeKey.Contains(key) {
				inside = append(inside, key)
			}
		}
		if len(inside) == 0 {
			continue
		}
		SortKeys(inside)

		joined := entity.FieldSet{}
		for _, f := range entity.Fields {
			var parts []string
			for _, key := range inside {
				if v, ok := other[key].Get(f); ok {
					parts = append(parts, v)
				}
			}
			joined.Set(f, strings.Join(parts, "\n\n"))
		}
		for _, key := range inside {
			delete(other, key)
		}
		other[rangeKey] = joined
		covers[rangeKey] = append(covers[rangeKey], inside...)
	}
}

func expand(records []entity.VerseRecord) []entity.VerseRecord {
	explicit := make(map[entity.VerseKey]bool, len(records))
	for _, rec := range records {
		if !rec.Key.IsRange() {
			explicit[rec.Key] = true
		}
	}

	var out []entity.VerseRecord
	for _, rec := range records {
		if !rec.Key.IsRange() {
			out = append(out, rec)
			continue
		}
		for _, n := range rec.Key.Numbers() {
			key := entity.VerseKey(strconv.Itoa(n))
			if explicit[key] {
				continue
			}
			single := rec
			single.Key = key
			single.Sources = maps.Clone(rec.Sources)
			single.Covers = []entity.VerseKey{rec.Key}
			out = append(out, single)
			explicit[key] = true
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

func clone(m map[entity.VerseKey]entity.FieldSet) map[entity.VerseKey]entity.FieldSet {
	out := make(map[entity.VerseKey]entity.FieldSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
