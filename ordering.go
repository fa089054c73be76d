package workpool

// orderingMode selects which orderingStrategy variant governs a pool's
// result-slot assignment.
type orderingMode int

const (
	// completionOrder assigns each completed execution the next slot in
	// completion order (FIFO over completions, regardless of which item
	// finished). This is the default.
	completionOrder orderingMode = iota

	// submissionOrder assigns the outcome of the i-th submitted item to
	// slot i, regardless of the order in which items complete.
	submissionOrder
)

// orderingStrategy is a tagged union of the two result-slot assignment
// policies, dispatching on mode in its two methods. Two variants do not
// justify an interface with dynamic dispatch.
type orderingStrategy struct {
	mode orderingMode

	// completionOrder state: the sliding range [lo, hi) of result positions
	// allocated to started executions but not yet filled by a completion;
	// hi - lo is the number in flight.
	lo, hi int

	// submissionOrder state.
	next      int
	executing map[int]struct{}
}

// newOrderingStrategy constructs a strategy for the given mode.
func newOrderingStrategy(mode orderingMode) *orderingStrategy {
	s := &orderingStrategy{mode: mode}
	if mode == submissionOrder {
		s.executing = make(map[int]struct{})
	}
	return s
}

// addExecution allocates and returns the execution index for a work item
// that is about to start running.
func (s *orderingStrategy) addExecution() int {
	if s.mode == submissionOrder {
		idx := s.next
		s.next++
		s.executing[idx] = struct{}{}
		return idx
	}
	idx := s.hi
	s.hi++
	return idx
}

// resultPosition returns the result slot index for a just-completed
// execution index, retiring its in-flight accounting.
func (s *orderingStrategy) resultPosition(execIndex int) int {
	if s.mode == submissionOrder {
		if _, ok := s.executing[execIndex]; !ok {
			panic("workpool: result reported for unknown execution index")
		}
		delete(s.executing, execIndex)
		return execIndex
	}
	pos := s.lo
	s.lo++
	return pos
}

// inFlight reports the number of executions currently outstanding (started,
// not yet completed).
func (s *orderingStrategy) inFlight() int {
	if s.mode == submissionOrder {
		return len(s.executing)
	}
	return s.hi - s.lo
}
