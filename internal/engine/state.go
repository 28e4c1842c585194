package engine

// State is the engine's position in its trading lifecycle.
type State string

const (
	StateIdle     State = "IDLE"     // no position, scanning for entries
	StateEntering State = "ENTERING" // entry order submitted, awaiting fill
	StateOpen     State = "OPEN"     // position live, monitoring exits
	StateExiting  State = "EXITING"  // close order submitted
	StatePaused   State = "PAUSED"   // risk gate denied trading or emergency stop
)

// gaugeValue maps a state to its numeric metric encoding.
func (s State) gaugeValue() float64 {
	switch s {
	case StateIdle:
		return 0
	case StateEntering:
		return 1
	case StateOpen:
		return 2
	case StateExiting:
		return 3
	case StatePaused:
		return 4
	}
	return -1
}
