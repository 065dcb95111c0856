package watcher

// State is the watcher's current activity.
type State int32

const (
	Idle State = iota
	Scanning
	Converting
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Converting:
		return "converting"
	case Rebuilding:
		return "rebuilding"
	}
	return "unknown"
}
