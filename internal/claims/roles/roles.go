// Package roles converts approved claims into durable property assignments
// and derived user roles, and reverses that derivation on revocation. Both
// operations expect to run inside the caller's transaction: the role-retention
// check-then-write in Revoke races with concurrent grants otherwise.
package roles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kvartal/internal/claims/models"
	"kvartal/internal/claims/store"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/sentinel"
)

// Engine derives and revokes roles from property assignments.
type Engine struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger: logger,
		tracer: otel.Tracer("kvartal/claims/roles"),
	}
}

// Grant materializes an approval.
type Grant struct {
	UserID     id.UserID
	Property   models.PropertyRef
	Role       models.Role
	BuildingID *id.BuildingID
	GrantedBy  id.UserID
	At         time.Time
}

// Revocation removes an active assignment and reconsiders derived roles.
type Revocation struct {
	UserID     id.UserID
	Kind       models.PropertyKind
	PropertyID uuid.UUID
	ActorID    id.UserID
	Template   models.ResolutionTemplate
	Reason     string
	At         time.Time
}

// Grant inserts an active assignment, the derived user role, and the building
// interest. Any pre-existing active assignment for the same (user, property,
// role) is revoked as superseded first, so re-approving a claim never leaves
// duplicate active rows.
//
// Commercial grants carry no assignment table; they only derive the role.
func (e *Engine) Grant(ctx context.Context, s store.Store, g Grant) (*models.PropertyAssignment, error) {
	ctx, span := e.tracer.Start(ctx, "roles.grant", trace.WithAttributes(
		attribute.String("role", string(g.Role)),
		attribute.String("property_kind", string(g.Property.Kind())),
	))
	defer span.End()

	if !models.RoleValidForType(g.Property.Kind().ClaimType(), g.Role) {
		return nil, dErrors.New(dErrors.CodeValidation, "role is not valid for this property kind")
	}

	var assignment *models.PropertyAssignment
	if g.Property.Kind() != models.PropertyKindCommercial {
		if err := e.supersedeExisting(ctx, s, g); err != nil {
			return nil, err
		}
		assignment = &models.PropertyAssignment{
			ID:         id.NewAssignmentID(),
			UserID:     g.UserID,
			Kind:       g.Property.Kind(),
			PropertyID: g.Property.ID(),
			Role:       g.Role,
			CreatedAt:  g.At,
		}
		if err := s.CreateAssignment(ctx, assignment); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment")
		}
	}

	if err := s.AddUserRole(ctx, g.UserID, g.Role, g.At); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive user role")
	}

	if g.BuildingID != nil && !g.BuildingID.IsNil() {
		if err := s.AddBuildingInterest(ctx, g.UserID, *g.BuildingID, true, g.At); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record building interest")
		}
	}

	e.logger.InfoContext(ctx, "granted property role",
		"user_id", g.UserID.String(),
		"role", string(g.Role),
		"property_kind", string(g.Property.Kind()),
	)
	return assignment, nil
}

func (e *Engine) supersedeExisting(ctx context.Context, s store.Store, g Grant) error {
	existing, err := s.ListAssignmentsByProperty(ctx, g.Property.Kind(), g.Property.ID())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	for _, a := range existing {
		if !a.Active() || a.UserID != g.UserID || a.Role != g.Role {
			continue
		}
		reason, _ := models.ResolveText(models.TemplateRevokedSuperseded, "")
		err := s.RevokeAssignment(ctx, a.ID, g.At, g.GrantedBy, models.TemplateRevokedSuperseded, reason)
		if err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to supersede assignment")
		}
		e.logger.InfoContext(ctx, "superseded previous assignment",
			"assignment_id", a.ID.String(),
			"user_id", g.UserID.String(),
		)
	}
	return nil
}

// Revoke soft-deletes the active assignment and removes the derived user role
// when no other active assignment carries the same role name. When the role is
// dropped, the sibling role on the other property kind is reconsidered the
// same way.
func (e *Engine) Revoke(ctx context.Context, s store.Store, r Revocation) (*models.PropertyAssignment, error) {
	ctx, span := e.tracer.Start(ctx, "roles.revoke", trace.WithAttributes(
		attribute.String("property_kind", string(r.Kind)),
	))
	defer span.End()

	assignment, err := s.FindActiveAssignment(ctx, r.UserID, r.Kind, r.PropertyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active assignment for this property")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find assignment")
	}

	reason, err := models.ResolveText(r.Template, r.Reason)
	if err != nil {
		return nil, err
	}

	if err := s.RevokeAssignment(ctx, assignment.ID, r.At, r.ActorID, r.Template, reason); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodePrecondition, "assignment is already revoked")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke assignment")
	}

	if err := e.reconsiderRole(ctx, s, r.UserID, assignment.Role); err != nil {
		return nil, err
	}

	assignment.RevokedAt = &r.At
	assignment.RevokedBy = &r.ActorID
	assignment.RevocationTemplate = r.Template
	assignment.RevocationReason = reason

	e.logger.InfoContext(ctx, "revoked property assignment",
		"assignment_id", assignment.ID.String(),
		"user_id", r.UserID.String(),
		"actor_id", r.ActorID.String(),
		"template", string(r.Template),
	)
	return assignment, nil
}

// reconsiderRole drops the user role when the last active assignment carrying
// it is gone. Each role name is tracked independently: an active sibling
// never keeps the revoked role name alive, it only gets its own turn at the
// same check.
func (e *Engine) reconsiderRole(ctx context.Context, s store.Store, userID id.UserID, role models.Role) error {
	remaining, err := s.ListActiveAssignmentsByRole(ctx, userID, role)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check remaining assignments")
	}
	if len(remaining) > 0 {
		return nil
	}
	if err := s.RemoveUserRole(ctx, userID, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove user role")
	}

	sibling, ok := role.SiblingRole()
	if !ok {
		return nil
	}
	siblingActive, err := s.ListActiveAssignmentsByRole(ctx, userID, sibling)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check sibling assignments")
	}
	if len(siblingActive) == 0 {
		if err := s.RemoveUserRole(ctx, userID, sibling); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove sibling role")
		}
	}
	return nil
}
