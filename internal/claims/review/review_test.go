package review

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kvartal/internal/claims/intake"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/roles"
	"kvartal/internal/claims/store"
	"kvartal/internal/directory"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/requestcontext"
)

type ReviewEngineSuite struct {
	suite.Suite
	ctx    context.Context
	store  *store.Memory
	dir    *directory.Memory
	engine *Engine
	intake *intake.Service
	now    time.Time
}

func TestReviewEngineSuite(t *testing.T) {
	suite.Run(t, new(ReviewEngineSuite))
}

func (s *ReviewEngineSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewMemory()
	s.dir = directory.NewMemory()
	tx := store.NewMemoryTx(s.store)
	rolesEngine := roles.NewEngine(slog.Default())
	s.engine = NewEngine(s.store, tx, rolesEngine, s.dir, nil, nil, slog.Default())
	s.intake = intake.NewService(s.store, tx, rolesEngine, nil, nil, slog.Default())
}

func (s *ReviewEngineSuite) createClaim(userID id.UserID, property models.PropertyRef, claimType models.ClaimType, role models.Role, docs int) *models.Claim {
	in := intake.CreateInput{Type: claimType, Role: role, Property: property}
	for i := 0; i < docs; i++ {
		in.Documents = append(in.Documents, intake.DocumentInput{
			Type:     models.DocumentTypeEGRN,
			FileURL:  "s3://bucket/doc.pdf",
			FileName: "doc.pdf",
			FileSize: 100,
			MimeType: "application/pdf",
		})
	}
	claim, err := s.intake.Create(s.ctx, userID, in)
	s.Require().NoError(err)
	return claim
}

// Scenario: apartment ownership claim with two documents, approved by an
// administrator with the canned all-correct template.
func (s *ReviewEngineSuite) TestAdminApprovalMaterializesGrant() {
	userID := id.NewUserID()
	admin := id.NewUserID()
	buildingID := id.NewBuildingID()
	apartmentID := id.NewApartmentID()
	property := models.NewApartmentRef(apartmentID)
	s.dir.Seed(directory.Property{
		Kind:       models.PropertyKindApartment,
		ID:         property.ID(),
		Label:      "A301",
		BuildingID: buildingID,
	})
	claim := s.createClaim(userID, property, models.ClaimTypeApartment, models.RoleApartmentOwner, 2)

	reviewed, err := s.engine.AdminReview(s.ctx, admin, Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, reviewed.Status)
	s.Equal("Documents verified, ownership confirmed.", reviewed.AdminComment)
	s.Require().NotNil(reviewed.ReviewedBy)
	s.Equal(admin, *reviewed.ReviewedBy)

	assignment, err := s.store.FindActiveAssignment(s.ctx, userID, models.PropertyKindApartment, property.ID())
	s.Require().NoError(err)
	s.Equal(models.RoleApartmentOwner, assignment.Role)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.True(has)

	interested, err := s.store.HasBuildingInterest(s.ctx, userID, buildingID)
	s.Require().NoError(err)
	s.True(interested)

	docs, err := s.store.ListDocuments(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	deadline := s.now.AddDate(0, 0, 60)
	for _, doc := range docs {
		s.Require().NotNil(doc.ScheduledForDeletion)
		s.Equal(deadline, *doc.ScheduledForDeletion)
	}

	history, err := s.store.ListHistory(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.StatusPending, history[0].FromStatus)
	s.Equal(models.StatusApproved, history[0].ToStatus)
	s.Equal(models.TemplateApprovedAllCorrect, history[0].Template)
}

func (s *ReviewEngineSuite) TestAdminRejectSchedulesRetentionOnly() {
	userID := id.NewUserID()
	claim := s.createClaim(userID, models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 1)

	reviewed, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusRejected,
		Template:  models.TemplateRejectedBadDocuments,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, reviewed.Status)

	_, err = s.store.FindActiveAssignment(s.ctx, userID, models.PropertyKindApartment, claim.Property.ID())
	s.Error(err)

	docs, err := s.store.ListDocuments(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.NotNil(docs[0].ScheduledForDeletion)
}

func (s *ReviewEngineSuite) TestDocumentsRequestedIsNotTerminal() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 1)

	reviewed, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusDocumentsRequested,
		Template:  models.TemplateDocumentsRequestedMore,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusDocumentsRequested, reviewed.Status)

	docs, err := s.store.ListDocuments(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Nil(docs[0].ScheduledForDeletion)

	// The claim remains reviewable.
	_, err = s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedAllCorrect,
	})
	s.NoError(err)
}

func (s *ReviewEngineSuite) TestReviewOfTerminalClaimFails() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 0)

	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusRejected,
		Template:  models.TemplateRejectedNoDocuments,
	})
	s.Require().NoError(err)

	_, err = s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedAllCorrect,
	})
	s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
}

func (s *ReviewEngineSuite) TestCustomTemplateStoresCallerText() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 0)

	reviewed, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:        claim.ID,
		NewStatus:      models.StatusRejected,
		Template:       models.TemplateRejectedCustom,
		ResolutionText: "Deed is issued to a different person.",
	})
	s.Require().NoError(err)
	s.Equal("Deed is issued to a different person.", reviewed.AdminComment)
}

func (s *ReviewEngineSuite) TestCannedTemplateIgnoresCallerText() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 0)

	reviewed, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:        claim.ID,
		NewStatus:      models.StatusRejected,
		Template:       models.TemplateRejectedNoDocuments,
		ResolutionText: "this text must be ignored",
	})
	s.Require().NoError(err)
	s.Equal("No supporting documents were provided.", reviewed.AdminComment)
}

func (s *ReviewEngineSuite) TestCustomTemplateRequiresText() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 0)

	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedCustom,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReviewEngineSuite) TestTemplateMustMatchStatus() {
	claim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentOwner, 0)

	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   claim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateRejectedNoDocuments,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// Scenario: an owner approves a tenant's claim on their own apartment while
// an unrelated pending claim stays untouched.
func (s *ReviewEngineSuite) TestOwnerReviewApprovesTenantClaim() {
	owner := id.NewUserID()
	tenant := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())

	ownerClaim := s.createClaim(owner, apartment, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   ownerClaim.ID,
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	tenantClaim := s.createClaim(tenant, apartment, models.ClaimTypeApartment, models.RoleApartmentResident, 0)
	unrelated := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentResident, 0)

	reviewed, err := s.engine.OwnerReview(s.ctx, owner, Decision{
		ClaimID:        tenantClaim.ID,
		NewStatus:      models.StatusApproved,
		ResolutionText: "Lease confirmed, welcome.",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, reviewed.Status)
	s.Equal("Lease confirmed, welcome.", reviewed.AdminComment)

	assignment, err := s.store.FindActiveAssignment(s.ctx, tenant, models.PropertyKindApartment, apartment.ID())
	s.Require().NoError(err)
	s.Equal(models.RoleApartmentResident, assignment.Role)

	has, err := s.store.HasUserRole(s.ctx, tenant, models.RoleApartmentResident)
	s.Require().NoError(err)
	s.True(has)

	// The unrelated claim is untouched.
	other, err := s.store.GetClaim(s.ctx, unrelated.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, other.Status)
}

// An owner who previously lived in the apartment as a tenant keeps both
// active assignments after the ownership approval. The resident row must not
// shadow the owner row when authorizing a tenant-claim review.
func (s *ReviewEngineSuite) TestOwnerReviewWithSecondAssignmentOnSameProperty() {
	owner := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())

	residentClaim := s.createClaim(owner, apartment, models.ClaimTypeApartment, models.RoleApartmentResident, 0)
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID: residentClaim.ID, NewStatus: models.StatusApproved, Template: models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	ownerClaim := s.createClaim(owner, apartment, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err = s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID: ownerClaim.ID, NewStatus: models.StatusApproved, Template: models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	owned, err := s.store.ListActiveAssignmentsByRole(s.ctx, owner, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
	residencies, err := s.store.ListActiveAssignmentsByRole(s.ctx, owner, models.RoleApartmentResident)
	s.Require().NoError(err)
	s.Require().Len(residencies, 1)

	tenantClaim := s.createClaim(id.NewUserID(), apartment, models.ClaimTypeApartment, models.RoleApartmentResident, 0)
	reviewed, err := s.engine.OwnerReview(s.ctx, owner, Decision{
		ClaimID:        tenantClaim.ID,
		NewStatus:      models.StatusApproved,
		ResolutionText: "Lease confirmed.",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, reviewed.Status)
}

// Owning a different apartment does not authorize reviewing this one.
func (s *ReviewEngineSuite) TestOwnerReviewOfForeignPropertyForbidden() {
	owner := id.NewUserID()
	ownedElsewhere := models.NewApartmentRef(id.NewApartmentID())
	ownerClaim := s.createClaim(owner, ownedElsewhere, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID: ownerClaim.ID, NewStatus: models.StatusApproved, Template: models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	tenantClaim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentResident, 0)
	_, err = s.engine.OwnerReview(s.ctx, owner, Decision{
		ClaimID:        tenantClaim.ID,
		NewStatus:      models.StatusApproved,
		ResolutionText: "fine by me",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ReviewEngineSuite) TestOwnerReviewHistoryUsesCustomTemplate() {
	owner := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	ownerClaim := s.createClaim(owner, apartment, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID: ownerClaim.ID, NewStatus: models.StatusApproved, Template: models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	tenantClaim := s.createClaim(id.NewUserID(), apartment, models.ClaimTypeApartment, models.RoleApartmentResident, 0)
	_, err = s.engine.OwnerReview(s.ctx, owner, Decision{
		ClaimID:        tenantClaim.ID,
		NewStatus:      models.StatusRejected,
		ResolutionText: "We have never met this applicant.",
	})
	s.Require().NoError(err)

	history, err := s.store.ListHistory(s.ctx, tenantClaim.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.TemplateRejectedCustom, history[0].Template)
	s.Equal("We have never met this applicant.", history[0].ResolutionText)
}

func (s *ReviewEngineSuite) TestOwnerCannotReviewOwnershipClaims() {
	owner := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	ownerClaim := s.createClaim(owner, apartment, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID: ownerClaim.ID, NewStatus: models.StatusApproved, Template: models.TemplateApprovedAllCorrect,
	})
	s.Require().NoError(err)

	rivalClaim := s.createClaim(id.NewUserID(), apartment, models.ClaimTypeApartment, models.RoleApartmentOwner, 0)
	_, err = s.engine.OwnerReview(s.ctx, owner, Decision{
		ClaimID:        rivalClaim.ID,
		NewStatus:      models.StatusRejected,
		ResolutionText: "mine",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ReviewEngineSuite) TestOwnerReviewRequiresActiveOwnership() {
	tenantClaim := s.createClaim(id.NewUserID(), models.NewApartmentRef(id.NewApartmentID()),
		models.ClaimTypeApartment, models.RoleApartmentResident, 0)

	_, err := s.engine.OwnerReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:        tenantClaim.ID,
		NewStatus:      models.StatusApproved,
		ResolutionText: "fine by me",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ReviewEngineSuite) TestOwnerReviewCannotRequestDocuments() {
	_, err := s.engine.OwnerReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:        id.NewClaimID(),
		NewStatus:      models.StatusDocumentsRequested,
		ResolutionText: "send more",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ReviewEngineSuite) TestReviewMissingClaim() {
	_, err := s.engine.AdminReview(s.ctx, id.NewUserID(), Decision{
		ClaimID:   id.NewClaimID(),
		NewStatus: models.StatusApproved,
		Template:  models.TemplateApprovedAllCorrect,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
