package flowsync

// State is the synchronizer's load state.
//
//	Idle -> Loading -> Loaded
//	              \--> Failed -> Idle
//
// Loading is re-entered whenever the governing identifier changes, even
// while a previous load is in flight.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
