package ingest

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Report summarizes one run.
type Report struct {
	RunID      string
	Collection string
	DryRun     bool

	Listed   int
	Selected int
	Imported int
	Failed   int
	Skipped  int

	VersesWritten      int
	TranscriptsWritten int
	FailedBatches      int
	// IncompleteVerses counts records persisted without a translation.
	IncompleteVerses int
	FailedItems      []string

	Started  time.Time
	Duration time.Duration
}

// Fields renders the counters for structured logging.
func (r *Report) Fields() logrus.Fields {
	return logrus.Fields{
		"run_id":              r.RunID,
		"collection":          r.Collection,
		"dry_run":             r.DryRun,
		"listed":              r.Listed,
		"selected":            r.Selected,
		"imported":            r.Imported,
		"failed":              r.Failed,
		"skipped":             r.Skipped,
		"verses_written":      r.VersesWritten,
		"transcripts_written": r.TranscriptsWritten,
		"failed_batches":      r.FailedBatches,
		"incomplete_verses":   r.IncompleteVerses,
		"duration":            r.Duration.String(),
	}
}

func (r *Report) fail(item string) {
	r.Failed++
	r.FailedItems = append(r.FailedItems, item)
}
