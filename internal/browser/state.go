// internal/browser/state.go
package browser

// State is a Manager lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLaunching
	StateReady
	StateClosing
	StateClosed
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
