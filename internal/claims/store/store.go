// Package store persists the claim lifecycle state: claims, documents,
// history, per-kind property assignments, derived user roles, and building
// interests. Both implementations (memory, postgres) satisfy Store; mutating
// services run against a Store handed to them inside a Tx boundary.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
)

// ClaimFilter narrows administrative claim listings.
type ClaimFilter struct {
	Status *models.ClaimStatus
	Type   *models.ClaimType
	Page   int
	Limit  int
}

// Store is the full persistence surface of the claims subsystem. Stores
// return sentinel errors (pkg/platform/sentinel); services translate them
// into domain errors.
type Store interface {
	// Claims.
	CreateClaim(ctx context.Context, claim *models.Claim) error
	GetClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	UpdateClaim(ctx context.Context, claim *models.Claim) error
	DeleteClaim(ctx context.Context, claimID id.ClaimID) error
	// FindPendingClaim returns the pending claim for (user, property), if any.
	FindPendingClaim(ctx context.Context, userID id.UserID, property models.PropertyRef) (*models.Claim, error)
	ListClaimsByUser(ctx context.Context, userID id.UserID) ([]*models.Claim, error)
	ListClaimsByProperty(ctx context.Context, property models.PropertyRef) ([]*models.Claim, error)
	// ListPendingResidentClaims returns pending claims whose claimed role is a
	// resident role, newest first.
	ListPendingResidentClaims(ctx context.Context) ([]*models.Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]*models.Claim, int, error)
	CountClaimsByStatus(ctx context.Context) (map[models.ClaimStatus]int, error)

	// Documents.
	AddDocument(ctx context.Context, doc *models.ClaimDocument) error
	GetDocument(ctx context.Context, documentID id.DocumentID) (*models.ClaimDocument, error)
	DeleteDocument(ctx context.Context, documentID id.DocumentID) error
	ListDocuments(ctx context.Context, claimID id.ClaimID) ([]*models.ClaimDocument, error)
	CountDocuments(ctx context.Context, claimID id.ClaimID) (int, error)
	ScheduleDocumentsForDeletion(ctx context.Context, claimID id.ClaimID, at time.Time) error
	DocumentsDueForDeletion(ctx context.Context, before time.Time) ([]*models.ClaimDocument, error)
	DeleteDocumentsByClaim(ctx context.Context, claimID id.ClaimID) error

	// History. Append-only except for the bulk spam cleanup.
	AppendHistory(ctx context.Context, entry *models.ClaimHistoryEntry) error
	ListHistory(ctx context.Context, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error)
	DeleteHistoryByClaim(ctx context.Context, claimID id.ClaimID) error

	// Property assignments, one table per kind underneath.
	CreateAssignment(ctx context.Context, assignment *models.PropertyAssignment) error
	FindActiveAssignment(ctx context.Context, userID id.UserID, kind models.PropertyKind, propertyID uuid.UUID) (*models.PropertyAssignment, error)
	ListActiveAssignmentsByUser(ctx context.Context, userID id.UserID) ([]*models.PropertyAssignment, error)
	ListActiveAssignmentsByRole(ctx context.Context, userID id.UserID, role models.Role) ([]*models.PropertyAssignment, error)
	ListAssignmentsByProperty(ctx context.Context, kind models.PropertyKind, propertyID uuid.UUID) ([]*models.PropertyAssignment, error)
	RevokeAssignment(ctx context.Context, assignmentID id.AssignmentID, at time.Time, by id.UserID, template models.ResolutionTemplate, reason string) error

	// Derived user roles. Add is idempotent.
	AddUserRole(ctx context.Context, userID id.UserID, role models.Role, at time.Time) error
	RemoveUserRole(ctx context.Context, userID id.UserID, role models.Role) error
	HasUserRole(ctx context.Context, userID id.UserID, role models.Role) (bool, error)
	ListUserRoles(ctx context.Context, userID id.UserID) ([]models.Role, error)

	// Building interests. Add is idempotent on (user, building).
	AddBuildingInterest(ctx context.Context, userID id.UserID, buildingID id.BuildingID, autoAdded bool, at time.Time) error
	HasBuildingInterest(ctx context.Context, userID id.UserID, buildingID id.BuildingID) (bool, error)
}

// Tx provides the transactional boundary for claim mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock. Every check-then-write sequence in the services runs inside one
// RunInTx call.
type Tx interface {
	RunInTx(ctx context.Context, fn func(s Store) error) error
}
