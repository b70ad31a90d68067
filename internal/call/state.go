package call

// State is where a participant is in the call lifecycle.
type State int32

const (
	// StateIdle holds neither local media nor a peer-connection.
	StateIdle State = iota
	// StateReady holds local media and has announced itself with "ready",
	// but no peer-connection exists yet.
	StateReady
	// StateNegotiating has a peer-connection whose local and remote
	// descriptions are not both set.
	StateNegotiating
	// StateActive has both descriptions set. Candidates may still arrive.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}
