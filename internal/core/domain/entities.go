package domain

// Role represents user role in the system
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// EventName identifies a domain event emitted by the help lifecycle.
// An external dispatcher turns these into user-facing notifications; the core
// never formats or delivers messages itself.
type EventName string

const (
	EventAssigned         EventName = "assigned"
	EventPaymentRequested EventName = "payment_requested"
	EventPaymentDone      EventName = "payment_done"
	EventConfirmed        EventName = "confirmed"
	EventDisputed         EventName = "disputed"
	EventTimedOut         EventName = "timed_out"
	EventBlocked          EventName = "blocked"
	EventUnblocked        EventName = "unblocked"
)

// Event is one lifecycle occurrence, addressed to a user
type Event struct {
	Name   EventName              `json:"event"`
	UserID uint                   `json:"user_id"`
	TxID   string                 `json:"tx_id,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}
