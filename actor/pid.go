package actor

import "fmt"

// PID (Process ID) is a unique reference to an actor instance for the
// lifetime of the Engine that spawned it. Equality is by ID.
type PID struct {
	ID string
}

// String returns the string representation of the PID.
func (pid *PID) String() string {
	if pid == nil {
		return "<nil>"
	}
	return pid.ID
}

// Equal reports whether two PIDs refer to the same actor instance.
func (pid *PID) Equal(other *PID) bool {
	if pid == nil || other == nil {
		return pid == other
	}
	return pid.ID == other.ID
}

func newPID(n uint64) *PID {
	return &PID{ID: fmt.Sprintf("actor-%d", n)}
}
