package domain

// HelpStatus is the closed status set for a help transaction. All status
// strings entering the system go through ParseHelpStatus; there is no other
// normalization path.
type HelpStatus string

const (
	StatusAssigned         HelpStatus = "ASSIGNED"
	StatusPaymentRequested HelpStatus = "PAYMENT_REQUESTED"
	StatusPaymentDone      HelpStatus = "PAYMENT_DONE"
	StatusConfirmed        HelpStatus = "CONFIRMED"
	StatusDisputed         HelpStatus = "DISPUTED"
	StatusTimeout          HelpStatus = "TIMEOUT"
	StatusCancelled        HelpStatus = "CANCELLED"
	StatusForceConfirmed   HelpStatus = "FORCE_CONFIRMED"
)

var validStatuses = map[HelpStatus]bool{
	StatusAssigned:         true,
	StatusPaymentRequested: true,
	StatusPaymentDone:      true,
	StatusConfirmed:        true,
	StatusDisputed:         true,
	StatusTimeout:          true,
	StatusCancelled:        true,
	StatusForceConfirmed:   true,
}

// ParseHelpStatus validates a stored status string. Unrecognized input is a
// validation error, never a silent default.
func ParseHelpStatus(s string) (HelpStatus, error) {
	st := HelpStatus(s)
	if !validStatuses[st] {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsTerminal reports whether no further transitions are permitted
func (s HelpStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusForceConfirmed, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// CountsAsConfirmed reports whether the status counts toward the receiver's
// help-received counter
func (s HelpStatus) CountsAsConfirmed() bool {
	return s == StatusConfirmed || s == StatusForceConfirmed
}

// NonTerminalStatuses returns the open statuses, for store queries
func NonTerminalStatuses() []string {
	return []string{
		string(StatusAssigned),
		string(StatusPaymentRequested),
		string(StatusPaymentDone),
		string(StatusDisputed),
	}
}

// allowedTransitions is the single source of truth for the state machine.
// PAYMENT_REQUESTED self-transition models a repeated payment request (gated
// by the 2h cooldown). TIMEOUT and CANCELLED are reachable from every
// non-terminal state; FORCE_CONFIRMED is the administrative override.
var allowedTransitions = map[HelpStatus][]HelpStatus{
	StatusAssigned: {
		StatusPaymentRequested, StatusPaymentDone,
		StatusTimeout, StatusCancelled, StatusForceConfirmed,
	},
	StatusPaymentRequested: {
		StatusPaymentRequested, StatusPaymentDone,
		StatusTimeout, StatusCancelled, StatusForceConfirmed,
	},
	StatusPaymentDone: {
		StatusConfirmed, StatusDisputed,
		StatusTimeout, StatusCancelled, StatusForceConfirmed,
	},
	StatusDisputed: {
		StatusPaymentDone,
		StatusTimeout, StatusCancelled, StatusForceConfirmed,
	},
}

// CanTransition reports whether from → to is a legal transition
func CanTransition(from, to HelpStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PredecessorsOf returns the statuses from which `to` is reachable
func PredecessorsOf(to HelpStatus) []HelpStatus {
	var from []HelpStatus
	for st, nexts := range allowedTransitions {
		for _, next := range nexts {
			if next == to {
				from = append(from, st)
				break
			}
		}
	}
	return from
}
