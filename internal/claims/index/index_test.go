package index

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/roles"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
)

type IndexServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Memory
	roles   *roles.Engine
	service *Service
	now     time.Time
}

func TestIndexServiceSuite(t *testing.T) {
	suite.Run(t, new(IndexServiceSuite))
}

func (s *IndexServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.roles = roles.NewEngine(slog.Default())
	s.service = NewService(s.store, store.NewMemoryTx(s.store), slog.Default())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *IndexServiceSuite) seedClaim(userID id.UserID, property models.PropertyRef, role models.Role, status models.ClaimStatus) *models.Claim {
	claim := &models.Claim{
		ID:          id.NewClaimID(),
		UserID:      userID,
		Type:        property.Kind().ClaimType(),
		ClaimedRole: role,
		Property:    property,
		Status:      status,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	s.Require().NoError(s.store.CreateClaim(s.ctx, claim))
	return claim
}

func (s *IndexServiceSuite) grantOwner(userID id.UserID, property models.PropertyRef, role models.Role) {
	_, err := s.roles.Grant(s.ctx, s.store, roles.Grant{
		UserID:    userID,
		Property:  property,
		Role:      role,
		GrantedBy: id.NewUserID(),
		At:        s.now,
	})
	s.Require().NoError(err)
}

func (s *IndexServiceSuite) TestMyClaimHistoryScopedToOwner() {
	userID := id.NewUserID()
	claim := s.seedClaim(userID, models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentOwner, models.StatusApproved)
	s.Require().NoError(s.store.AppendHistory(s.ctx, &models.ClaimHistoryEntry{
		ClaimID:    claim.ID,
		FromStatus: models.StatusPending,
		ToStatus:   models.StatusApproved,
		ChangedBy:  id.NewUserID(),
		CreatedAt:  s.now,
	}))

	entries, err := s.service.MyClaimHistory(s.ctx, userID, claim.ID)
	s.Require().NoError(err)
	s.Len(entries, 1)

	_, err = s.service.MyClaimHistory(s.ctx, id.NewUserID(), claim.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IndexServiceSuite) TestOwnerPendingTenantClaimsIntersection() {
	owner := id.NewUserID()
	ownedApartment := models.NewApartmentRef(id.NewApartmentID())
	ownedSpot := models.NewParkingRef(id.NewParkingSpotID())
	s.grantOwner(owner, ownedApartment, models.RoleApartmentOwner)
	s.grantOwner(owner, ownedSpot, models.RoleParkingOwner)

	onOwned := s.seedClaim(id.NewUserID(), ownedApartment, models.RoleApartmentResident, models.StatusPending)
	onOwnedSpot := s.seedClaim(id.NewUserID(), ownedSpot, models.RoleParkingResident, models.StatusPending)
	// Not for this owner: different property, owner-type role, non-pending.
	s.seedClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentResident, models.StatusPending)
	s.seedClaim(id.NewUserID(), ownedApartment, models.RoleApartmentOwner, models.StatusPending)
	s.seedClaim(id.NewUserID(), ownedApartment, models.RoleApartmentResident, models.StatusRejected)

	pending, err := s.service.OwnerPendingTenantClaims(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	got := map[id.ClaimID]bool{}
	for _, c := range pending {
		got[c.ID] = true
	}
	s.True(got[onOwned.ID])
	s.True(got[onOwnedSpot.ID])
}

func (s *IndexServiceSuite) TestOwnerPendingTenantClaimsIgnoresRevokedOwnership() {
	owner := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	s.grantOwner(owner, apartment, models.RoleApartmentOwner)
	s.seedClaim(id.NewUserID(), apartment, models.RoleApartmentResident, models.StatusPending)

	_, err := s.roles.Revoke(s.ctx, s.store, roles.Revocation{
		UserID:     owner,
		Kind:       models.PropertyKindApartment,
		PropertyID: apartment.ID(),
		ActorID:    owner,
		Template:   models.TemplateRevokedSelf,
		At:         s.now.Add(time.Hour),
	})
	s.Require().NoError(err)

	pending, err := s.service.OwnerPendingTenantClaims(s.ctx, owner)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *IndexServiceSuite) TestPropertyHistoryAccessGate() {
	claimant := id.NewUserID()
	holder := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	s.seedClaim(claimant, apartment, models.RoleApartmentOwner, models.StatusRejected)
	s.grantOwner(holder, apartment, models.RoleApartmentOwner)

	// A past claimant may look, even after rejection.
	timeline, err := s.service.PropertyHistory(s.ctx, models.PropertyKindApartment, apartment.ID(), claimant)
	s.Require().NoError(err)
	s.Len(timeline.Claims, 1)
	s.Len(timeline.Assignments, 1)

	// So may the current holder.
	_, err = s.service.PropertyHistory(s.ctx, models.PropertyKindApartment, apartment.ID(), holder)
	s.Require().NoError(err)

	// A stranger may not.
	_, err = s.service.PropertyHistory(s.ctx, models.PropertyKindApartment, apartment.ID(), id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *IndexServiceSuite) TestAdminListAndStats() {
	for i := 0; i < 3; i++ {
		s.seedClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentOwner, models.StatusPending)
	}
	s.seedClaim(id.NewUserID(), models.NewParkingRef(id.NewParkingSpotID()), models.RoleParkingOwner, models.StatusApproved)

	pending := models.StatusPending
	claims, total, err := s.service.AdminList(s.ctx, store.ClaimFilter{Status: &pending, Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(claims, 2)

	stats, err := s.service.AdminStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats[models.StatusPending])
	s.Equal(1, stats[models.StatusApproved])
}

// Spam cleanup removes three claims with their documents and history while an
// unrelated fourth claim keeps everything.
func (s *IndexServiceSuite) TestBulkDeleteRemovesEverything() {
	var spam []id.ClaimID
	for i := 0; i < 3; i++ {
		claim := s.seedClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentOwner, models.StatusPending)
		s.Require().NoError(s.store.AddDocument(s.ctx, &models.ClaimDocument{
			ID: id.NewDocumentID(), ClaimID: claim.ID, Type: models.DocumentTypeOther,
			FileURL: "s3://bucket/spam.png", FileName: "spam.png", FileSize: 10, MimeType: "image/png", CreatedAt: s.now,
		}))
		s.Require().NoError(s.store.AppendHistory(s.ctx, &models.ClaimHistoryEntry{
			ClaimID: claim.ID, FromStatus: models.StatusPending, ToStatus: models.StatusReview,
			ChangedBy: id.NewUserID(), CreatedAt: s.now,
		}))
		spam = append(spam, claim.ID)
	}
	kept := s.seedClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentOwner, models.StatusPending)
	s.Require().NoError(s.store.AddDocument(s.ctx, &models.ClaimDocument{
		ID: id.NewDocumentID(), ClaimID: kept.ID, Type: models.DocumentTypeEGRN,
		FileURL: "s3://bucket/real.pdf", FileName: "real.pdf", FileSize: 10, MimeType: "application/pdf", CreatedAt: s.now,
	}))

	s.Require().NoError(s.service.BulkDelete(s.ctx, spam))

	for _, claimID := range spam {
		_, err := s.store.GetClaim(s.ctx, claimID)
		s.Error(err)
		n, err := s.store.CountDocuments(s.ctx, claimID)
		s.Require().NoError(err)
		s.Zero(n)
		history, err := s.store.ListHistory(s.ctx, claimID)
		s.Require().NoError(err)
		s.Empty(history)
	}

	got, err := s.store.GetClaim(s.ctx, kept.ID)
	s.Require().NoError(err)
	s.Equal(kept.ID, got.ID)
	n, err := s.store.CountDocuments(s.ctx, kept.ID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *IndexServiceSuite) TestBulkDeleteUnknownIDTouchesNothing() {
	claim := s.seedClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()), models.RoleApartmentOwner, models.StatusPending)

	err := s.service.BulkDelete(s.ctx, []id.ClaimID{claim.ID, id.NewClaimID()})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.store.GetClaim(s.ctx, claim.ID)
	s.NoError(err)
}

func (s *IndexServiceSuite) TestBulkDeleteRequiresIDs() {
	s.True(dErrors.HasCode(s.service.BulkDelete(s.ctx, nil), dErrors.CodeValidation))
}
