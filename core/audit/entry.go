package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the security decision being recorded.
type Action string

const (
	ActionSessionInit    Action = "session.init"
	ActionSessionCreate  Action = "session.create"
	ActionSessionRefresh Action = "session.refresh"
	ActionSessionLogout  Action = "session.logout"
	ActionSessionTimeout Action = "session.timeout"
	ActionSessionExpire  Action = "session.expire"
	ActionLockoutTrip    Action = "lockout.trip"
	ActionLockoutReject  Action = "lockout.reject"
	ActionCSRFReject     Action = "csrf.reject"
	ActionLoginFailure   Action = "login.failure"
)

// Outcome is the result of the recorded decision.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one append-only audit record. Entries are immutable once
// written; retention and export belong to the backing store's owner.
type Entry struct {
	ID           uuid.UUID
	Actor        string // subject id, lockout key, or "anonymous"
	Action       Action
	ResourceType string
	ResourceID   string
	Outcome      Outcome
	IPAddress    string
	UserAgent    string
	Details      map[string]any
	CreatedAt    time.Time
}

// NewEntry builds an entry with a generated ID and timestamp.
func NewEntry(actor string, action Action, outcome Outcome) Entry {
	return Entry{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    action,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
}
