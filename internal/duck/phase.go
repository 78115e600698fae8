package duck

// Phase is the state-machine stage of a Session. The main track is strictly
// forward (Idle → Running → AwaitingModel → Streaming → Done); Cancelling and
// Terminated form a parallel track reachable from anywhere on quit or fatal
// error. Transitions are monotonic: once a later phase is reached, earlier
// phases cannot be re-entered.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseAwaitingModel
	PhaseStreaming
	PhaseDone
	PhaseCancelling
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseAwaitingModel:
		return "awaiting-model"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseCancelling:
		return "cancelling"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further main-track work happens in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseTerminated
}

// advance returns the phase after requesting a transition to next. Invalid or
// backwards requests leave the phase unchanged, which makes re-applying a
// terminal transition a no-op.
func advance(cur Phase, next Phase) Phase {
	switch next {
	case PhaseCancelling:
		if cur == PhaseTerminated {
			return cur
		}
		return PhaseCancelling
	case PhaseTerminated:
		// Only the cancellation track terminates; Done is the normal end.
		if cur == PhaseCancelling || cur == PhaseTerminated {
			return PhaseTerminated
		}
		return cur
	default:
	}
	if cur == PhaseCancelling || cur == PhaseTerminated {
		return cur
	}
	if next <= cur || next > PhaseDone {
		return cur
	}
	return next
}
