package lifecycle

// State is the core app state as tracked by the controller.
type State string

const (
	StateStopped    State = "stopped"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateStopping   State = "stopping"
	StateRestarting State = "restarting"
	StateRebuilding State = "rebuilding"
	StateUpdating   State = "updating"
	StateError      State = "error"
)

// Transient reports whether an operation is executing in this state.
func (s State) Transient() bool {
	switch s {
	case StateStarting, StateStopping, StateRestarting, StateRebuilding, StateUpdating:
		return true
	default:
		return false
	}
}

// Operation is a state-changing lifecycle operation.
type Operation string

const (
	OpStart   Operation = "start"
	OpStop    Operation = "stop"
	OpRestart Operation = "restart"
	OpRebuild Operation = "rebuild"
	OpUpdate  Operation = "update"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpStart, OpStop, OpRestart, OpRebuild, OpUpdate:
		return true
	default:
		return false
	}
}

// transient returns the state held while op executes.
func (op Operation) transient() State {
	switch op {
	case OpStart:
		return StateStarting
	case OpStop:
		return StateStopping
	case OpRestart:
		return StateRestarting
	case OpRebuild:
		return StateRebuilding
	default:
		return StateUpdating
	}
}

// clearsError reports whether a successful op leaves the error state.
func (op Operation) clearsError() bool {
	return op == OpStart || op == OpRestart || op == OpRebuild
}

// successState is the state reached when op succeeds. from is the state the
// operation was accepted in; wasRunning tells whether the core app was alive
// when an update began.
func successState(op Operation, from State, wasRunning bool) State {
	if from == StateError && !op.clearsError() {
		return StateError
	}
	switch op {
	case OpStop:
		return StateStopped
	case OpUpdate:
		if wasRunning {
			return StateRunning
		}
		return StateStopped
	default:
		return StateRunning
	}
}
