package deal

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusWaitingForOtherParty, StatusWaitingForFunding, true},
		{StatusWaitingForOtherParty, StatusCancelled, true},
		{StatusWaitingForOtherParty, StatusWorkInProgress, false},
		{StatusWaitingForFunding, StatusWorkInProgress, true},
		{StatusWaitingForFunding, StatusCancelled, true},
		{StatusWaitingForFunding, StatusReleased, false},
		{StatusWorkInProgress, StatusAwaitingConfirmation, true},
		{StatusWorkInProgress, StatusCancelled, false},
		{StatusWorkInProgress, StatusDisputed, false},
		{StatusAwaitingConfirmation, StatusReleased, true},
		{StatusAwaitingConfirmation, StatusDisputed, true},
		{StatusDisputed, StatusReleased, true},
		{StatusDisputed, StatusWorkInProgress, false},
		{StatusReleased, StatusDisputed, false},
		{StatusCancelled, StatusWaitingForFunding, false},
	}

	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusReleased, StatusCancelled} {
		if !Terminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusWaitingForOtherParty, StatusWaitingForFunding, StatusWorkInProgress, StatusAwaitingConfirmation, StatusDisputed} {
		if Terminal(s) {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
