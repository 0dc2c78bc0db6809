// Package intake is the entry point of the claim lifecycle: it creates
// claims, manages their evidence while a decision is outstanding, and handles
// self-service revocation of granted assignments.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"kvartal/internal/claims/ledger"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/retention"
	"kvartal/internal/claims/roles"
	"kvartal/internal/claims/store"
	"kvartal/internal/notify"
	"kvartal/internal/platform/metrics"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/sentinel"
	"kvartal/pkg/requestcontext"
)

// DocumentInput describes one evidence file already persisted by the file
// storage collaborator.
type DocumentInput struct {
	Type         models.DocumentType
	FileURL      string
	FileName     string
	FileSize     int64
	MimeType     string
	ThumbnailURL string
}

// CreateInput carries everything needed to open a claim.
type CreateInput struct {
	Type      models.ClaimType
	Role      models.Role
	Property  models.PropertyRef
	Comment   string
	Documents []DocumentInput
}

// Service implements claim intake.
type Service struct {
	store     store.Store
	tx        store.Tx
	roles     *roles.Engine
	ledger    ledger.Ledger
	retention retention.Manager
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(
	s store.Store,
	tx store.Tx,
	rolesEngine *roles.Engine,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		store:     s,
		tx:        tx,
		roles:     rolesEngine,
		ledger:    ledger.New(),
		retention: retention.NewManager(),
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}
}

// Create opens a pending claim with its initial documents in one transaction.
// The duplicate-pending check is re-run inside the transaction so two
// concurrent submissions cannot both land.
func (s *Service) Create(ctx context.Context, userID id.UserID, in CreateInput) (*models.Claim, error) {
	if in.Property.IsZero() || !in.Property.MatchesType(in.Type) {
		return nil, dErrors.New(dErrors.CodeValidation, "property reference does not match claim type")
	}
	if !models.RoleValidForType(in.Type, in.Role) {
		return nil, dErrors.New(dErrors.CodeValidation,
			"role "+string(in.Role)+" is not valid for claim type "+string(in.Type))
	}
	if len(in.Documents) > models.MaxDocumentsPerClaim {
		return nil, dErrors.New(dErrors.CodePrecondition, "document limit reached for this claim")
	}

	now := requestcontext.Now(ctx)
	claim := &models.Claim{
		ID:          id.NewClaimID(),
		UserID:      userID,
		Type:        in.Type,
		ClaimedRole: in.Role,
		Property:    in.Property,
		Status:      models.StatusPending,
		UserComment: strings.TrimSpace(in.Comment),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		_, err := st.FindPendingClaim(ctx, userID, in.Property)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "a pending claim already exists for this property")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending claims")
		}

		if err := st.CreateClaim(ctx, claim); err != nil {
			// A concurrent submission can slip past the pending check and
			// lose to the partial unique index instead.
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a pending claim already exists for this property")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
		}
		for _, doc := range in.Documents {
			if err := st.AddDocument(ctx, newDocument(claim.ID, doc, now)); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach document")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ClaimsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "claim created",
		"claim_id", claim.ID.String(),
		"user_id", userID.String(),
		"claim_type", string(in.Type),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.notifier.Notify(notify.Event{
		Name:       notify.EventClaimCreated,
		Title:      "New property ownership claim",
		ActorName:  requestcontext.ActorName(ctx),
		OccurredAt: now,
		Metadata: map[string]string{
			"claim_id":   claim.ID.String(),
			"user_id":    userID.String(),
			"claim_type": string(in.Type),
			"role":       string(in.Role),
		},
	})
	return claim, nil
}

func newDocument(claimID id.ClaimID, in DocumentInput, at time.Time) *models.ClaimDocument {
	return &models.ClaimDocument{
		ID:           id.NewDocumentID(),
		ClaimID:      claimID,
		Type:         in.Type,
		FileURL:      in.FileURL,
		FileName:     in.FileName,
		FileSize:     in.FileSize,
		MimeType:     in.MimeType,
		ThumbnailURL: in.ThumbnailURL,
		CreatedAt:    at,
	}
}

// Cancel withdraws a pending claim, removing it and its documents.
func (s *Service) Cancel(ctx context.Context, userID id.UserID, claimID id.ClaimID) error {
	return s.tx.RunInTx(ctx, func(st store.Store) error {
		claim, err := loadOwnClaim(ctx, st, userID, claimID)
		if err != nil {
			return err
		}
		if claim.Status != models.StatusPending {
			return dErrors.New(dErrors.CodePrecondition, "only pending claims can be cancelled")
		}
		if err := st.DeleteDocumentsByClaim(ctx, claimID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete documents")
		}
		if err := st.DeleteClaim(ctx, claimID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete claim")
		}
		s.logger.InfoContext(ctx, "claim cancelled",
			"claim_id", claimID.String(),
			"user_id", userID.String(),
		)
		return nil
	})
}

// AddDocument attaches evidence while the claim awaits a decision. Attaching
// to a claim in documents_requested moves it back to review.
func (s *Service) AddDocument(ctx context.Context, userID id.UserID, claimID id.ClaimID, in DocumentInput) (*models.ClaimDocument, error) {
	now := requestcontext.Now(ctx)
	var doc *models.ClaimDocument
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		claim, err := loadOwnClaim(ctx, st, userID, claimID)
		if err != nil {
			return err
		}
		if !claim.Status.DocumentsEditable() {
			return dErrors.New(dErrors.CodePrecondition,
				"documents cannot be changed while the claim is "+string(claim.Status))
		}
		if err := s.retention.CheckCap(ctx, st, claimID); err != nil {
			return err
		}

		doc = newDocument(claimID, in, now)
		if err := st.AddDocument(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach document")
		}

		if claim.Status == models.StatusDocumentsRequested {
			from := claim.Status
			claim.Status = models.StatusReview
			claim.UpdatedAt = now
			if err := st.UpdateClaim(ctx, claim); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
			}
			text, _ := models.ResolveText(models.TemplateDocumentsResubmitted, "")
			if err := s.ledger.Append(ctx, st, claimID, from, models.StatusReview,
				models.TemplateDocumentsResubmitted, text, userID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transition")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RemoveDocument detaches evidence while the claim awaits a decision.
func (s *Service) RemoveDocument(ctx context.Context, userID id.UserID, claimID id.ClaimID, documentID id.DocumentID) error {
	return s.tx.RunInTx(ctx, func(st store.Store) error {
		claim, err := loadOwnClaim(ctx, st, userID, claimID)
		if err != nil {
			return err
		}
		if !claim.Status.DocumentsEditable() {
			return dErrors.New(dErrors.CodePrecondition,
				"documents cannot be changed while the claim is "+string(claim.Status))
		}
		doc, err := st.GetDocument(ctx, documentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
		}
		if doc.ClaimID != claimID {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		if err := st.DeleteDocument(ctx, documentID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete document")
		}
		return nil
	})
}

// RevokeOwnProperty is self-service revocation of an active assignment the
// caller holds. A non-empty reason is stored verbatim under the custom
// template; otherwise the canned self-revocation text applies.
func (s *Service) RevokeOwnProperty(ctx context.Context, userID id.UserID, kind models.PropertyKind, propertyID uuid.UUID, reason string) (*models.PropertyAssignment, error) {
	template := models.TemplateRevokedSelf
	if strings.TrimSpace(reason) != "" {
		template = models.TemplateRevokedCustom
	}

	now := requestcontext.Now(ctx)
	var revoked *models.PropertyAssignment
	err := s.tx.RunInTx(ctx, func(st store.Store) error {
		var err error
		revoked, err = s.roles.Revoke(ctx, st, roles.Revocation{
			UserID:     userID,
			Kind:       kind,
			PropertyID: propertyID,
			ActorID:    userID,
			Template:   template,
			Reason:     reason,
			At:         now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{
		Name:       notify.EventAssignmentRevoked,
		Title:      "Property assignment revoked",
		ActorName:  requestcontext.ActorName(ctx),
		OccurredAt: now,
		Metadata: map[string]string{
			"assignment_id": revoked.ID.String(),
			"user_id":       userID.String(),
			"role":          string(revoked.Role),
		},
	})
	return revoked, nil
}

// loadOwnClaim fetches a claim and checks the caller owns it.
func loadOwnClaim(ctx context.Context, st store.Store, userID id.UserID, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := st.GetClaim(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if claim.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "claim belongs to another user")
	}
	return claim, nil
}
