package deal

// Status is the deal lifecycle state.
type Status string

const (
	StatusWaitingForOtherParty Status = "waiting_for_other_party"
	StatusWaitingForFunding    Status = "waiting_for_funding"
	StatusWorkInProgress       Status = "work_in_progress"
	StatusAwaitingConfirmation Status = "completed_awaiting_confirmation"
	StatusDisputed             Status = "disputed"
	StatusReleased             Status = "released"
	StatusCancelled            Status = "cancelled"
)

// transitions is the forward graph of the deal state machine. released and
// cancelled are terminal; disputed only ever resolves to released.
var transitions = map[Status][]Status{
	StatusWaitingForOtherParty: {StatusWaitingForFunding, StatusCancelled},
	StatusWaitingForFunding:    {StatusWorkInProgress, StatusCancelled},
	StatusWorkInProgress:       {StatusAwaitingConfirmation},
	StatusAwaitingConfirmation: {StatusReleased, StatusDisputed},
	StatusDisputed:             {StatusReleased},
	StatusReleased:             {},
	StatusCancelled:            {},
}

// ValidTransition reports whether moving from one status to the next is
// allowed by the state machine.
func ValidTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from the status.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}
