//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
	"kvartal/pkg/platform/sentinel"
	"kvartal/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *containers.PostgresContainer
	store     *Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.container.Apply(s.ctx, Schema))
	s.store = NewPostgres(s.container.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.container.DB.Close()
	_ = s.container.Container.Terminate(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateAll(s.ctx,
		"claims", "claim_documents", "claim_history",
		"apartment_assignments", "parking_assignments",
		"user_roles", "user_building_interests"))
}

func (s *PostgresStoreSuite) seedClaim(status models.ClaimStatus) *models.Claim {
	now := time.Now().UTC().Truncate(time.Microsecond)
	claim := &models.Claim{
		ID:          id.NewClaimID(),
		UserID:      id.NewUserID(),
		Type:        models.ClaimTypeApartment,
		ClaimedRole: models.RoleApartmentOwner,
		Property:    models.NewApartmentRef(id.NewApartmentID()),
		Status:      status,
		UserComment: "bought in 2024",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.store.CreateClaim(s.ctx, claim))
	return claim
}

func (s *PostgresStoreSuite) TestSecondPendingClaimSamePropertyConflicts() {
	first := s.seedClaim(models.StatusPending)

	second := &models.Claim{
		ID:          id.NewClaimID(),
		UserID:      first.UserID,
		Type:        models.ClaimTypeApartment,
		ClaimedRole: models.RoleApartmentResident,
		Property:    first.Property,
		Status:      models.StatusPending,
		CreatedAt:   first.CreatedAt,
		UpdatedAt:   first.CreatedAt,
	}
	s.ErrorIs(s.store.CreateClaim(s.ctx, second), sentinel.ErrConflict)

	first.Status = models.StatusRejected
	s.Require().NoError(s.store.UpdateClaim(s.ctx, first))
	s.NoError(s.store.CreateClaim(s.ctx, second))
}

func (s *PostgresStoreSuite) TestClaimRoundTrip() {
	claim := s.seedClaim(models.StatusPending)

	got, err := s.store.GetClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(claim.UserID, got.UserID)
	s.Equal(models.PropertyKindApartment, got.Property.Kind())
	s.Equal(claim.Property.ID(), got.Property.ID())
	s.Equal("bought in 2024", got.UserComment)
	s.Nil(got.ReviewedBy)

	reviewer := id.NewUserID()
	reviewedAt := time.Now().UTC().Truncate(time.Microsecond)
	got.Status = models.StatusApproved
	got.AdminComment = "verified"
	got.ReviewedBy = &reviewer
	got.ReviewedAt = &reviewedAt
	got.UpdatedAt = reviewedAt
	s.Require().NoError(s.store.UpdateClaim(s.ctx, got))

	again, err := s.store.GetClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, again.Status)
	s.Require().NotNil(again.ReviewedBy)
	s.Equal(reviewer, *again.ReviewedBy)
}

func (s *PostgresStoreSuite) TestGetClaimNotFound() {
	_, err := s.store.GetClaim(s.ctx, id.NewClaimID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindPendingClaimMatchesExactProperty() {
	claim := s.seedClaim(models.StatusPending)

	got, err := s.store.FindPendingClaim(s.ctx, claim.UserID, claim.Property)
	s.Require().NoError(err)
	s.Equal(claim.ID, got.ID)

	_, err = s.store.FindPendingClaim(s.ctx, claim.UserID, models.NewApartmentRef(id.NewApartmentID()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListClaimsPagination() {
	for i := 0; i < 3; i++ {
		s.seedClaim(models.StatusPending)
	}
	s.seedClaim(models.StatusRejected)

	pending := models.StatusPending
	claims, total, err := s.store.ListClaims(s.ctx, ClaimFilter{Status: &pending, Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(claims, 2)

	claims, total, err = s.store.ListClaims(s.ctx, ClaimFilter{})
	s.Require().NoError(err)
	s.Equal(4, total)
	s.Len(claims, 4)
}

func (s *PostgresStoreSuite) TestDocumentRetentionQueries() {
	claim := s.seedClaim(models.StatusPending)
	now := time.Now().UTC().Truncate(time.Microsecond)

	doc := &models.ClaimDocument{
		ID:        id.NewDocumentID(),
		ClaimID:   claim.ID,
		Type:      models.DocumentTypeContract,
		FileURL:   "s3://bucket/contract.pdf",
		FileName:  "contract.pdf",
		FileSize:  1024,
		MimeType:  "application/pdf",
		CreatedAt: now,
	}
	s.Require().NoError(s.store.AddDocument(s.ctx, doc))

	deadline := now.AddDate(0, 0, 60)
	s.Require().NoError(s.store.ScheduleDocumentsForDeletion(s.ctx, claim.ID, deadline))

	due, err := s.store.DocumentsDueForDeletion(s.ctx, deadline.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(doc.ID, due[0].ID)

	s.Require().NoError(s.store.DeleteDocument(s.ctx, doc.ID))
	_, err = s.store.GetDocument(s.ctx, doc.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestHistoryOrdering() {
	claim := s.seedClaim(models.StatusPending)
	actor := id.NewUserID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i, to := range []models.ClaimStatus{models.StatusReview, models.StatusApproved} {
		s.Require().NoError(s.store.AppendHistory(s.ctx, &models.ClaimHistoryEntry{
			ID:        uuid.New(),
			ClaimID:   claim.ID,
			FromStatus: models.StatusPending,
			ToStatus:  to,
			Template:  models.TemplateApprovedAllCorrect,
			ChangedBy: actor,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.store.ListHistory(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(models.StatusApproved, entries[0].ToStatus)
}

func (s *PostgresStoreSuite) TestAssignmentsAcrossKinds() {
	userID := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	apartment := &models.PropertyAssignment{
		ID: id.NewAssignmentID(), UserID: userID,
		Kind: models.PropertyKindApartment, PropertyID: uuid.New(),
		Role: models.RoleApartmentOwner, CreatedAt: now,
	}
	parking := &models.PropertyAssignment{
		ID: id.NewAssignmentID(), UserID: userID,
		Kind: models.PropertyKindParking, PropertyID: uuid.New(),
		Role: models.RoleParkingOwner, CreatedAt: now,
	}
	s.Require().NoError(s.store.CreateAssignment(s.ctx, apartment))
	s.Require().NoError(s.store.CreateAssignment(s.ctx, parking))

	active, err := s.store.ListActiveAssignmentsByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(active, 2)

	s.Require().NoError(s.store.RevokeAssignment(s.ctx, parking.ID, now.Add(time.Hour), userID, models.TemplateRevokedSelf, ""))

	active, err = s.store.ListActiveAssignmentsByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(apartment.ID, active[0].ID)

	byRole, err := s.store.ListActiveAssignmentsByRole(s.ctx, userID, models.RoleParkingOwner)
	s.Require().NoError(err)
	s.Empty(byRole)

	// A second revoke finds the row already revoked.
	err = s.store.RevokeAssignment(s.ctx, parking.ID, now.Add(2*time.Hour), userID, models.TemplateRevokedSelf, "")
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestUserRolesUpsert() {
	userID := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.AddUserRole(s.ctx, userID, models.RoleStoreOwner, now))
	s.Require().NoError(s.store.AddUserRole(s.ctx, userID, models.RoleStoreOwner, now.Add(time.Hour)))

	roles, err := s.store.ListUserRoles(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal([]models.Role{models.RoleStoreOwner}, roles)
}

func (s *PostgresStoreSuite) TestBuildingInterestUpsert() {
	userID := id.NewUserID()
	buildingID := id.NewBuildingID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.AddBuildingInterest(s.ctx, userID, buildingID, true, now))
	s.Require().NoError(s.store.AddBuildingInterest(s.ctx, userID, buildingID, true, now))

	has, err := s.store.HasBuildingInterest(s.ctx, userID, buildingID)
	s.Require().NoError(err)
	s.True(has)
}
