package ingest

// Phase is the stage a run or item is in. Logs carry it as the "phase" field.
type Phase int

const (
	PhaseListing Phase = iota
	PhaseFetching
	PhaseParsing
	PhaseMerging
	PhasePersisting
	PhaseDone
	// PhaseFailedItem marks an item that was given up on; the run goes on.
	PhaseFailedItem
)

func (p Phase) String() string {
	switch p {
	case PhaseListing:
		return "listing"
	case PhaseFetching:
		return "fetching"
	case PhaseParsing:
		return "parsing"
	case PhaseMerging:
		return "merging"
	case PhasePersisting:
		return "persisting"
	case PhaseDone:
		return "done"
	case PhaseFailedItem:
		return "failed_item"
	default:
		return "unknown"
	}
}
