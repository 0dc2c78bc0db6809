// Package notify delivers best-effort outbound notifications. Delivery is
// fire-and-forget: enqueueing never blocks claim processing, and publish
// failures are logged and discarded.
package notify

import "time"

// Event names emitted by the claims subsystem.
const (
	EventClaimCreated            = "claim_created"
	EventClaimApproved           = "claim_approved"
	EventClaimRejected           = "claim_rejected"
	EventClaimDocumentsRequested = "claim_documents_requested"
	EventAssignmentRevoked       = "assignment_revoked"
)

// Event is an outbound notification.
type Event struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	ActorName   string            `json:"actor_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier accepts events for asynchronous delivery.
type Notifier interface {
	Notify(event Event)
}

// Discard is a Notifier that drops every event. Useful in tests.
type Discard struct{}

func (Discard) Notify(Event) {}
