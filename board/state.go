package board

import "fmt"

// State is the connection state of a Session.
type State int

const (
	Disconnected State = iota
	Opening
	EnteringRepl
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Opening:
		return "Opening"
	case EnteringRepl:
		return "EnteringRepl"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
