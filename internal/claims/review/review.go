// Package review validates and executes claim status transitions. Two
// authorization-gated entry points, administrator and owner review, share one
// transition core; the difference between them is an authorization policy and
// a template policy, not a second code path.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kvartal/internal/claims/ledger"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/retention"
	"kvartal/internal/claims/roles"
	"kvartal/internal/claims/store"
	"kvartal/internal/directory"
	"kvartal/internal/notify"
	"kvartal/internal/platform/metrics"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/sentinel"
	"kvartal/pkg/requestcontext"
)

// Decision is a review verdict on a claim.
type Decision struct {
	ClaimID        id.ClaimID
	NewStatus      models.ClaimStatus
	Template       models.ResolutionTemplate
	ResolutionText string
}

// Engine executes review transitions.
type Engine struct {
	store     store.Store
	tx        store.Tx
	roles     *roles.Engine
	ledger    ledger.Ledger
	retention retention.Manager
	directory directory.Directory
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewEngine(
	s store.Store,
	tx store.Tx,
	rolesEngine *roles.Engine,
	dir directory.Directory,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Engine{
		store:     s,
		tx:        tx,
		roles:     rolesEngine,
		ledger:    ledger.New(),
		retention: retention.NewManager(),
		directory: dir,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("kvartal/claims/review"),
	}
}

// reviewPolicy is the pluggable part of the transition: who may decide what,
// and how the resolution text is derived.
type reviewPolicy struct {
	reviewer  string
	authorize func(ctx context.Context, s store.Store, claim *models.Claim) error
	resolve   func(claim *models.Claim, d Decision) (models.ResolutionTemplate, string, error)
}

// AdminReview applies an administrator decision. Any outstanding claim may be
// moved to approved, rejected, or documents_requested, with a template drawn
// from the canned enumeration or a custom variant carrying free text. The
// feature permission gate lives in the transport layer.
func (e *Engine) AdminReview(ctx context.Context, actorID id.UserID, d Decision) (*models.Claim, error) {
	return e.review(ctx, actorID, d, reviewPolicy{
		reviewer:  "admin",
		authorize: func(context.Context, store.Store, *models.Claim) error { return nil },
		resolve: func(_ *models.Claim, d Decision) (models.ResolutionTemplate, string, error) {
			if !d.Template.ValidForStatus(d.NewStatus) {
				return "", "", dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("template %q is not valid for status %q", d.Template, d.NewStatus))
			}
			text, err := models.ResolveText(d.Template, d.ResolutionText)
			if err != nil {
				return "", "", err
			}
			return d.Template, text, nil
		},
	})
}

// OwnerReview applies a property owner's decision on a tenancy claim. Owners
// may only approve or reject resident-type claims on properties they
// currently, actively own, and the resolution text is always their own words.
func (e *Engine) OwnerReview(ctx context.Context, ownerID id.UserID, d Decision) (*models.Claim, error) {
	if d.NewStatus != models.StatusApproved && d.NewStatus != models.StatusRejected {
		return nil, dErrors.New(dErrors.CodeValidation, "owner review must approve or reject")
	}
	return e.review(ctx, ownerID, d, reviewPolicy{
		reviewer: "owner",
		authorize: func(ctx context.Context, s store.Store, claim *models.Claim) error {
			if !claim.ClaimedRole.IsResidentRole() {
				return dErrors.New(dErrors.CodeForbidden, "owners may only review tenancy claims")
			}
			// The reviewer may hold several active assignments on the
			// property (a resident row before the ownership was approved),
			// so look up the owner role specifically rather than taking
			// whichever assignment a role-less search returns first.
			ownerRole := claim.Property.Kind().OwnerRole()
			owned, err := s.ListActiveAssignmentsByRole(ctx, ownerID, ownerRole)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check ownership")
			}
			for _, a := range owned {
				if a.PropertyID == claim.Property.ID() {
					return nil
				}
			}
			return dErrors.New(dErrors.CodeForbidden, "you do not own this property")
		},
		resolve: func(_ *models.Claim, d Decision) (models.ResolutionTemplate, string, error) {
			template, _ := models.CustomTemplateFor(d.NewStatus)
			text, err := models.ResolveText(template, d.ResolutionText)
			if err != nil {
				return "", "", err
			}
			return template, text, nil
		},
	})
}

// review is the shared transition core. Steps: authorize, check the claim is
// still outstanding, update it, append the history entry, schedule retention
// on terminal outcomes, and derive roles on approval — all in one
// transaction. The notification goes out only after commit.
func (e *Engine) review(ctx context.Context, actorID id.UserID, d Decision, p reviewPolicy) (*models.Claim, error) {
	ctx, span := e.tracer.Start(ctx, "claims.review", trace.WithAttributes(
		attribute.String("claim_id", d.ClaimID.String()),
		attribute.String("new_status", string(d.NewStatus)),
		attribute.String("reviewer", p.reviewer),
	))
	defer span.End()
	started := time.Now()

	// Resolve the building before the transaction: directory lookups are
	// reference reads and must not extend the write transaction.
	buildingID, err := e.resolveBuilding(ctx, d.ClaimID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var reviewed *models.Claim
	err = e.tx.RunInTx(ctx, func(s store.Store) error {
		claim, err := s.GetClaim(ctx, d.ClaimID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
		}

		if err := p.authorize(ctx, s, claim); err != nil {
			return err
		}
		if !claim.Status.IsOutstanding() {
			return dErrors.New(dErrors.CodePrecondition,
				"claim is already "+string(claim.Status))
		}

		template, text, err := p.resolve(claim, d)
		if err != nil {
			return err
		}

		from := claim.Status
		claim.Status = d.NewStatus
		claim.AdminComment = text
		claim.ReviewedBy = &actorID
		claim.ReviewedAt = &now
		claim.UpdatedAt = now
		if err := s.UpdateClaim(ctx, claim); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
		}

		if err := e.ledger.Append(ctx, s, claim.ID, from, d.NewStatus, template, text, actorID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transition")
		}

		if d.NewStatus.IsTerminal() {
			if err := e.retention.ScheduleForDeletion(ctx, s, claim.ID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule document retention")
			}
		}

		if d.NewStatus == models.StatusApproved {
			_, err := e.roles.Grant(ctx, s, roles.Grant{
				UserID:     claim.UserID,
				Property:   claim.Property,
				Role:       claim.ClaimedRole,
				BuildingID: buildingID,
				GrantedBy:  actorID,
				At:         now,
			})
			if err != nil {
				return err
			}
		}

		reviewed = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordReview(string(d.NewStatus), p.reviewer)
		e.metrics.TransitionDuration.Observe(float64(time.Since(started).Milliseconds()))
	}
	e.logger.InfoContext(ctx, "claim reviewed",
		"claim_id", reviewed.ID.String(),
		"status", string(reviewed.Status),
		"reviewer", p.reviewer,
		"actor_id", actorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	e.notifyOutcome(ctx, reviewed)
	return reviewed, nil
}

func (e *Engine) resolveBuilding(ctx context.Context, claimID id.ClaimID) (*id.BuildingID, error) {
	if e.directory == nil {
		return nil, nil
	}
	claim, err := e.store.GetClaim(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	buildingID, ok, err := e.directory.BuildingOf(ctx, claim.Property.Kind(), claim.Property.ID())
	if err != nil || !ok {
		// A missing directory row never blocks the review itself.
		return nil, nil
	}
	return &buildingID, nil
}

func (e *Engine) notifyOutcome(ctx context.Context, claim *models.Claim) {
	var name, title string
	switch claim.Status {
	case models.StatusApproved:
		name, title = notify.EventClaimApproved, "Your property claim was approved"
	case models.StatusRejected:
		name, title = notify.EventClaimRejected, "Your property claim was rejected"
	case models.StatusDocumentsRequested:
		name, title = notify.EventClaimDocumentsRequested, "More documents are needed for your claim"
	default:
		return
	}
	e.notifier.Notify(notify.Event{
		Name:        name,
		Title:       title,
		Description: claim.AdminComment,
		ActorName:   requestcontext.ActorName(ctx),
		Metadata: map[string]string{
			"claim_id": claim.ID.String(),
			"user_id":  claim.UserID.String(),
			"status":   string(claim.Status),
		},
		OccurredAt: claim.UpdatedAt,
	})
}
