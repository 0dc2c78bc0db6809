// Package index answers read queries over claims and assignments, and hosts
// the administrative operations that do not belong to intake or review.
package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"kvartal/internal/claims/ledger"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/sentinel"
	"kvartal/pkg/requestcontext"
)

// Service implements the ownership index and administrative queries.
type Service struct {
	store  store.Store
	tx     store.Tx
	ledger ledger.Ledger
	logger *slog.Logger
}

func NewService(s store.Store, tx store.Tx, logger *slog.Logger) *Service {
	return &Service{store: s, tx: tx, ledger: ledger.New(), logger: logger}
}

// MyClaims lists the caller's claims, newest first.
func (s *Service) MyClaims(ctx context.Context, userID id.UserID) ([]*models.Claim, error) {
	claims, err := s.store.ListClaimsByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// MyClaimHistory returns the transition history of one of the caller's own
// claims.
func (s *Service) MyClaimHistory(ctx context.Context, userID id.UserID, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error) {
	claim, err := s.store.GetClaim(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if claim.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "claim belongs to another user")
	}
	entries, err := s.ledger.ForClaim(ctx, s.store, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// MyProperties lists the caller's active assignments.
func (s *Service) MyProperties(ctx context.Context, userID id.UserID) ([]*models.PropertyAssignment, error) {
	assignments, err := s.store.ListActiveAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	return assignments, nil
}

// OwnerPendingTenantClaims lists pending resident claims on properties the
// owner currently, actively owns: the intersection of the owner's active
// owner assignments with the open tenancy claims.
func (s *Service) OwnerPendingTenantClaims(ctx context.Context, ownerID id.UserID) ([]*models.Claim, error) {
	assignments, err := s.store.ListActiveAssignmentsByUser(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	type propertyKey struct {
		kind models.PropertyKind
		id   uuid.UUID
	}
	owned := make(map[propertyKey]struct{})
	for _, a := range assignments {
		if a.Role.IsOwnerRole() {
			owned[propertyKey{kind: a.Kind, id: a.PropertyID}] = struct{}{}
		}
	}
	if len(owned) == 0 {
		return nil, nil
	}

	pending, err := s.store.ListPendingResidentClaims(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending claims")
	}
	var out []*models.Claim
	for _, claim := range pending {
		key := propertyKey{kind: claim.Property.Kind(), id: claim.Property.ID()}
		if _, ok := owned[key]; ok {
			out = append(out, claim)
		}
	}
	return out, nil
}

// PropertyTimeline is the full claim and assignment record of one property.
type PropertyTimeline struct {
	Claims      []*models.Claim
	Assignments []*models.PropertyAssignment
}

// PropertyHistory returns a property's timeline. Access is gated to users who
// hold, have held, or have ever claimed the property.
func (s *Service) PropertyHistory(ctx context.Context, kind models.PropertyKind, propertyID uuid.UUID, requestingUserID id.UserID) (*PropertyTimeline, error) {
	ref, err := refFor(kind, propertyID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.ListClaimsByProperty(ctx, ref)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}

	var assignments []*models.PropertyAssignment
	if kind != models.PropertyKindCommercial {
		assignments, err = s.store.ListAssignmentsByProperty(ctx, kind, propertyID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
		}
	}

	allowed := false
	for _, claim := range claims {
		if claim.UserID == requestingUserID {
			allowed = true
			break
		}
	}
	if !allowed {
		for _, a := range assignments {
			if a.UserID == requestingUserID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeForbidden, "no relationship with this property")
	}
	return &PropertyTimeline{Claims: claims, Assignments: assignments}, nil
}

// AdminList pages through claims with optional status and type filters.
func (s *Service) AdminList(ctx context.Context, filter store.ClaimFilter) ([]*models.Claim, int, error) {
	claims, total, err := s.store.ListClaims(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, total, nil
}

// AdminStats counts claims per status. Recomputed on every call; the scale of
// the data does not justify a cache.
func (s *Service) AdminStats(ctx context.Context) (map[models.ClaimStatus]int, error) {
	counts, err := s.store.CountClaimsByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count claims")
	}
	return counts, nil
}

// AdminClaimHistory returns the transition history of any claim.
func (s *Service) AdminClaimHistory(ctx context.Context, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error) {
	if _, err := s.store.GetClaim(ctx, claimID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	entries, err := s.ledger.ForClaim(ctx, s.store, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// BulkDelete removes spam claims with their documents and history in one
// transaction: either every claim is gone or none is.
func (s *Service) BulkDelete(ctx context.Context, claimIDs []id.ClaimID) error {
	if len(claimIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no claim ids given")
	}
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		// Validate every id before touching anything.
		for _, claimID := range claimIDs {
			if _, err := st.GetClaim(ctx, claimID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "claim "+claimID.String()+" not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
			}
		}
		for _, claimID := range claimIDs {
			if err := st.DeleteDocumentsByClaim(ctx, claimID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete documents")
			}
			if err := st.DeleteHistoryByClaim(ctx, claimID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete history")
			}
			if err := st.DeleteClaim(ctx, claimID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete claim")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bulk deleted claims",
		"count", len(claimIDs),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func refFor(kind models.PropertyKind, propertyID uuid.UUID) (models.PropertyRef, error) {
	switch kind {
	case models.PropertyKindApartment:
		return models.NewApartmentRef(id.ApartmentID(propertyID)), nil
	case models.PropertyKindParking:
		return models.NewParkingRef(id.ParkingSpotID(propertyID)), nil
	case models.PropertyKindCommercial:
		return models.NewCommercialRef(id.OrganizationID(propertyID)), nil
	}
	return models.PropertyRef{}, dErrors.New(dErrors.CodeValidation, "unknown property kind")
}
