package domain

type LifecycleState int

const (
	StateIdle LifecycleState = iota
	StateFetchingSignature
	StateJoining
	StateInMeeting
	StateRejoining
	StateFailed
)

func (s LifecycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingSignature:
		return "fetching_signature"
	case StateJoining:
		return "joining"
	case StateInMeeting:
		return "in_meeting"
	case StateRejoining:
		return "rejoining"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether an attempt is running in this state.
func (s LifecycleState) Busy() bool {
	return s == StateFetchingSignature || s == StateJoining || s == StateRejoining
}

func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
