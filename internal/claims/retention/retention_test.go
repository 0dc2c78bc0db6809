package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/testutil"
)

func seedClaimWithDocuments(t *testing.T, s *store.Memory, docs int) id.ClaimID {
	t.Helper()
	ctx := context.Background()
	claimID := id.NewClaimID()
	require.NoError(t, s.CreateClaim(ctx, &models.Claim{
		ID:          claimID,
		UserID:      id.NewUserID(),
		Type:        models.ClaimTypeApartment,
		ClaimedRole: models.RoleApartmentOwner,
		Property:    models.NewApartmentRef(id.NewApartmentID()),
		Status:      models.StatusRejected,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}))
	for i := 0; i < docs; i++ {
		require.NoError(t, s.AddDocument(ctx, &models.ClaimDocument{
			ID:       id.NewDocumentID(),
			ClaimID:  claimID,
			Type:     models.DocumentTypeEGRN,
			FileURL:  "https://uploads.local/doc.pdf",
			FileName: "doc.pdf",
		}))
	}
	return claimID
}

func TestRetentionWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	testutil.Given(t, "a rejected claim with two documents", func(t *testing.T) {
		s := store.NewMemory()
		m := NewManager()
		claimID := seedClaimWithDocuments(t, s, 2)

		testutil.When(t, "its documents are scheduled for deletion", func(t *testing.T) {
			require.NoError(t, m.ScheduleForDeletion(ctx, s, claimID, now))

			testutil.Then(t, "they fall due sixty days later and not before", func(t *testing.T) {
				deadline := now.AddDate(0, 0, 60)

				due, err := m.DueForDeletion(ctx, s, deadline.Add(-time.Hour))
				require.NoError(t, err)
				require.Empty(t, due)

				due, err = m.DueForDeletion(ctx, s, deadline.Add(time.Hour))
				require.NoError(t, err)
				require.Len(t, due, 2)
			})
		})
	})
}

func TestDocumentCap(t *testing.T) {
	ctx := context.Background()

	testutil.Given(t, "a claim at the document limit", func(t *testing.T) {
		s := store.NewMemory()
		m := NewManager()
		claimID := seedClaimWithDocuments(t, s, models.MaxDocumentsPerClaim)

		testutil.When(t, "another document is checked against the cap", func(t *testing.T) {
			err := m.CheckCap(ctx, s, claimID)

			testutil.Then(t, "the cap rejects it with a precondition error", func(t *testing.T) {
				require.Error(t, err)
				require.True(t, dErrors.Is(err, dErrors.CodePrecondition))
			})
		})
	})
}
