package repository

import (
	"context"

	"github.com/eslsoft/vidya/internal/entity"
)

// SearchLexiconQuery matches entries whose normalized headword starts with
// Prefix. The prefix is normalized by the caller.
type SearchLexiconQuery struct {
	Pagination

	Prefix string
}

// LexiconRepository persists dictionary entries keyed by id.
type LexiconRepository interface {
	UpsertLexicon(ctx context.Context, entries []entity.LexiconEntry) error
	GetLexicon(ctx context.Context, id int64) (*entity.LexiconEntry, error)
	SearchLexicon(ctx context.Context, query *SearchLexiconQuery) ([]entity.LexiconEntry, error)
}
