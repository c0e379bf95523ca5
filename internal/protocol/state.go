package protocol

// State is the lifecycle position of a Session.
type State int

const (
	StateSpawned State = iota
	StateInitializing
	StateInitialized
	StateListing
	StateCalling
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateListing:
		return "listing"
	case StateCalling:
		return "calling"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
