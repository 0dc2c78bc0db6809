// Package ledger maintains the append-only audit trail of claim status
// transitions. Entries are written for every change, including owner-initiated
// reviews, and are never updated.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
)

// Ledger records transitions against whatever store it is handed, so callers
// can run it inside their own transaction.
type Ledger struct{}

func New() Ledger { return Ledger{} }

// Append writes one transition record.
func (Ledger) Append(ctx context.Context, s store.Store, claimID id.ClaimID,
	from, to models.ClaimStatus, template models.ResolutionTemplate,
	resolutionText string, changedBy id.UserID, at time.Time) error {
	return s.AppendHistory(ctx, &models.ClaimHistoryEntry{
		ID:             uuid.New(),
		ClaimID:        claimID,
		FromStatus:     from,
		ToStatus:       to,
		Template:       template,
		ResolutionText: resolutionText,
		ChangedBy:      changedBy,
		CreatedAt:      at,
	})
}

// ForClaim returns the transition history, most recent first.
func (Ledger) ForClaim(ctx context.Context, s store.Store, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error) {
	return s.ListHistory(ctx, claimID)
}
