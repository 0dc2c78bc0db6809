// Package retention implements the document retention policy: once a claim
// reaches a terminal outcome, its documents are scheduled for deletion after
// a fixed window. Physical removal of the stored files is an external batch
// concern; this package only sets and reads the deadline.
package retention

import (
	"context"
	"time"

	dErrors "kvartal/pkg/domain-errors"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	"kvartal/internal/platform/config"
	id "kvartal/pkg/domain"
)

// Manager applies retention deadlines and the per-claim document cap.
type Manager struct {
	retentionDays int
}

func NewManager() Manager {
	return Manager{retentionDays: config.RetentionDays}
}

// ScheduleForDeletion stamps every document of the claim with now + window.
func (m Manager) ScheduleForDeletion(ctx context.Context, s store.Store, claimID id.ClaimID, now time.Time) error {
	return s.ScheduleDocumentsForDeletion(ctx, claimID, now.AddDate(0, 0, m.retentionDays))
}

// DueForDeletion lists documents whose deadline has passed. Consumed by the
// external cleanup batch.
func (m Manager) DueForDeletion(ctx context.Context, s store.Store, before time.Time) ([]*models.ClaimDocument, error) {
	return s.DocumentsDueForDeletion(ctx, before)
}

// CheckCap fails with a precondition error when the claim already holds the
// maximum number of documents.
func (m Manager) CheckCap(ctx context.Context, s store.Store, claimID id.ClaimID) error {
	n, err := s.CountDocuments(ctx, claimID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count documents")
	}
	if n >= models.MaxDocumentsPerClaim {
		return dErrors.New(dErrors.CodePrecondition, "document limit reached for this claim")
	}
	return nil
}
