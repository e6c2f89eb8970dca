package pipeline

// State is a step of a run. Failed marks a page that could not be fetched
// or parsed; the run moves on to the next page afterwards.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateExtracting
	StateValidating
	StatePersisting
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StateValidating:
		return "validating"
	case StatePersisting:
		return "persisting"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	}
	return "unknown"
}
