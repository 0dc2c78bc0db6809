package roles

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
)

type RolesEngineSuite struct {
	suite.Suite
	ctx    context.Context
	store  *store.Memory
	engine *Engine
	now    time.Time
}

func TestRolesEngineSuite(t *testing.T) {
	suite.Run(t, new(RolesEngineSuite))
}

func (s *RolesEngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.engine = NewEngine(slog.Default())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RolesEngineSuite) grant(userID id.UserID, property models.PropertyRef, role models.Role) *models.PropertyAssignment {
	assignment, err := s.engine.Grant(s.ctx, s.store, Grant{
		UserID:    userID,
		Property:  property,
		Role:      role,
		GrantedBy: id.NewUserID(),
		At:        s.now,
	})
	s.Require().NoError(err)
	return assignment
}

func (s *RolesEngineSuite) TestGrantCreatesAssignmentRoleAndInterest() {
	userID := id.NewUserID()
	buildingID := id.NewBuildingID()
	property := models.NewApartmentRef(id.NewApartmentID())

	assignment, err := s.engine.Grant(s.ctx, s.store, Grant{
		UserID:     userID,
		Property:   property,
		Role:       models.RoleApartmentOwner,
		BuildingID: &buildingID,
		GrantedBy:  id.NewUserID(),
		At:         s.now,
	})
	s.Require().NoError(err)
	s.Require().NotNil(assignment)
	s.True(assignment.Active())
	s.Equal(models.RoleApartmentOwner, assignment.Role)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.True(has)

	interested, err := s.store.HasBuildingInterest(s.ctx, userID, buildingID)
	s.Require().NoError(err)
	s.True(interested)
}

func (s *RolesEngineSuite) TestGrantRejectsMismatchedRole() {
	_, err := s.engine.Grant(s.ctx, s.store, Grant{
		UserID:    id.NewUserID(),
		Property:  models.NewApartmentRef(id.NewApartmentID()),
		Role:      models.RoleParkingOwner,
		GrantedBy: id.NewUserID(),
		At:        s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RolesEngineSuite) TestGrantSupersedesExistingActive() {
	userID := id.NewUserID()
	property := models.NewApartmentRef(id.NewApartmentID())

	first := s.grant(userID, property, models.RoleApartmentOwner)
	second := s.grant(userID, property, models.RoleApartmentOwner)
	s.NotEqual(first.ID, second.ID)

	all, err := s.store.ListAssignmentsByProperty(s.ctx, models.PropertyKindApartment, property.ID())
	s.Require().NoError(err)
	s.Require().Len(all, 2)

	activeCount := 0
	for _, a := range all {
		if a.Active() {
			activeCount++
			s.Equal(second.ID, a.ID)
		} else {
			s.Equal(first.ID, a.ID)
			s.Equal(models.TemplateRevokedSuperseded, a.RevocationTemplate)
		}
	}
	s.Equal(1, activeCount)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.True(has)
}

func (s *RolesEngineSuite) TestCommercialGrantDerivesRoleOnly() {
	userID := id.NewUserID()
	assignment, err := s.engine.Grant(s.ctx, s.store, Grant{
		UserID:    userID,
		Property:  models.NewCommercialRef(id.NewOrganizationID()),
		Role:      models.RoleStoreOwner,
		GrantedBy: id.NewUserID(),
		At:        s.now,
	})
	s.Require().NoError(err)
	s.Nil(assignment)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleStoreOwner)
	s.Require().NoError(err)
	s.True(has)
}

func (s *RolesEngineSuite) TestRevokeRemovesRoleWhenLastAssignmentGoes() {
	userID := id.NewUserID()
	property := models.NewApartmentRef(id.NewApartmentID())
	s.grant(userID, property, models.RoleApartmentOwner)

	revoked, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     userID,
		Kind:       models.PropertyKindApartment,
		PropertyID: property.ID(),
		ActorID:    userID,
		Template:   models.TemplateRevokedSelf,
		At:         s.now.Add(time.Hour),
	})
	s.Require().NoError(err)
	s.NotNil(revoked.RevokedAt)
	s.Equal("Assignment revoked at the holder's request.", revoked.RevocationReason)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.False(has)
}

func (s *RolesEngineSuite) TestRevokeKeepsRoleWhileAnotherAssignmentHoldsIt() {
	userID := id.NewUserID()
	first := models.NewApartmentRef(id.NewApartmentID())
	second := models.NewApartmentRef(id.NewApartmentID())
	s.grant(userID, first, models.RoleApartmentOwner)
	s.grant(userID, second, models.RoleApartmentOwner)

	_, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     userID,
		Kind:       models.PropertyKindApartment,
		PropertyID: first.ID(),
		ActorID:    userID,
		Template:   models.TemplateRevokedSelf,
		At:         s.now.Add(time.Hour),
	})
	s.Require().NoError(err)

	has, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.True(has)
}

// A sibling-family assignment never keeps the revoked role name alive: after
// revoking the only apartment ownership, the apartment role goes even though
// parking ownership remains, and the parking role is untouched.
func (s *RolesEngineSuite) TestRevokeSiblingDoesNotKeepRoleAlive() {
	userID := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	parking := models.NewParkingRef(id.NewParkingSpotID())
	s.grant(userID, apartment, models.RoleApartmentOwner)
	s.grant(userID, parking, models.RoleParkingOwner)

	_, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     userID,
		Kind:       models.PropertyKindApartment,
		PropertyID: apartment.ID(),
		ActorID:    userID,
		Template:   models.TemplateRevokedSelf,
		At:         s.now.Add(time.Hour),
	})
	s.Require().NoError(err)

	hasApartment, err := s.store.HasUserRole(s.ctx, userID, models.RoleApartmentOwner)
	s.Require().NoError(err)
	s.False(hasApartment)

	hasParking, err := s.store.HasUserRole(s.ctx, userID, models.RoleParkingOwner)
	s.Require().NoError(err)
	s.True(hasParking)
}

func (s *RolesEngineSuite) TestRevokeDropsOrphanedSiblingRole() {
	userID := id.NewUserID()
	apartment := models.NewApartmentRef(id.NewApartmentID())
	s.grant(userID, apartment, models.RoleApartmentOwner)
	// The parking role exists without any backing assignment.
	s.Require().NoError(s.store.AddUserRole(s.ctx, userID, models.RoleParkingOwner, s.now))

	_, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     userID,
		Kind:       models.PropertyKindApartment,
		PropertyID: apartment.ID(),
		ActorID:    userID,
		Template:   models.TemplateRevokedSelf,
		At:         s.now.Add(time.Hour),
	})
	s.Require().NoError(err)

	hasParking, err := s.store.HasUserRole(s.ctx, userID, models.RoleParkingOwner)
	s.Require().NoError(err)
	s.False(hasParking)
}

func (s *RolesEngineSuite) TestRevokeWithoutActiveAssignment() {
	_, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     id.NewUserID(),
		Kind:       models.PropertyKindApartment,
		PropertyID: uuid.New(),
		ActorID:    id.NewUserID(),
		Template:   models.TemplateRevokedSelf,
		At:         s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RolesEngineSuite) TestRevokeCustomTemplateRequiresText() {
	userID := id.NewUserID()
	property := models.NewApartmentRef(id.NewApartmentID())
	s.grant(userID, property, models.RoleApartmentOwner)

	_, err := s.engine.Revoke(s.ctx, s.store, Revocation{
		UserID:     userID,
		Kind:       models.PropertyKindApartment,
		PropertyID: property.ID(),
		ActorID:    userID,
		Template:   models.TemplateRevokedCustom,
		At:         s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	// The failed revocation left the assignment active.
	active, err := s.store.FindActiveAssignment(s.ctx, userID, models.PropertyKindApartment, property.ID())
	s.Require().NoError(err)
	s.True(active.Active())
}
