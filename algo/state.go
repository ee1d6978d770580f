// SPDX-License-Identifier: MIT

package algo

// State is the lifecycle position of an algorithm.
//
//	Created → ParametersBound → Validated → MemoryAllocated → Computed
//	        → ResultAvailable | Faulted
//
// Streaming algorithms re-enter Computed once per block. Faulted is terminal.
type State int

const (
	StateCreated State = iota
	StateParametersBound
	StateValidated
	StateMemoryAllocated
	StateComputed
	StateResultAvailable
	StateFaulted
)

var stateNames = [...]string{
	"created", "parametersBound", "validated", "memoryAllocated",
	"computed", "resultAvailable", "faulted",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < StateCreated || s > StateFaulted {
		return "unknown"
	}

	return stateNames[s]
}
