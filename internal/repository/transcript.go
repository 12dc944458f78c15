package repository

import (
	"context"

	"github.com/eslsoft/vidya/internal/entity"
)

// TranscriptRepository persists lectures and letters keyed by slug. The
// paragraphs of a transcript are replaced on every upsert.
type TranscriptRepository interface {
	UpsertTranscript(ctx context.Context, transcript *entity.Transcript) (int64, error)
	GetTranscript(ctx context.Context, slug string) (*entity.Transcript, error)
}

// Store bundles every repository a single backend provides.
type Store interface {
	VerseRepository
	LexiconRepository
	TranscriptRepository
}
