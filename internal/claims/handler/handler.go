// Package handler exposes the claims subsystem over HTTP. Three route
// groups share one router: the claimant surface, the owner surface, and the
// feature-gated admin surface.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kvartal/internal/claims/index"
	"kvartal/internal/claims/intake"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/review"
	"kvartal/internal/claims/store"
	"kvartal/internal/directory"
	"kvartal/internal/files"
	"kvartal/internal/identity"
	"kvartal/internal/platform/middleware"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/httputil"
	"kvartal/pkg/requestcontext"
)

// Handler wires the claim services to the HTTP surface.
type Handler struct {
	intake     *intake.Service
	review     *review.Engine
	index      *index.Service
	directory  directory.Directory
	uploads    files.Storage
	validator  middleware.JWTValidator
	revocation middleware.TokenRevocationChecker
	features   middleware.FeatureChecker
	logger     *slog.Logger
}

func New(
	intakeSvc *intake.Service,
	reviewEngine *review.Engine,
	indexSvc *index.Service,
	dir directory.Directory,
	uploads files.Storage,
	validator middleware.JWTValidator,
	revocation middleware.TokenRevocationChecker,
	features middleware.FeatureChecker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		intake:     intakeSvc,
		review:     reviewEngine,
		index:      indexSvc,
		directory:  dir,
		uploads:    uploads,
		validator:  validator,
		revocation: revocation,
		features:   features,
		logger:     logger,
	}
}

// Register mounts the claims routes under /claims. The caller owns the outer
// middleware chain (recovery, request ID, logging); authentication and
// feature gating live here because they are route-group concerns.
func (h *Handler) Register(r chi.Router) {
	claims := chi.NewRouter()
	claims.Use(middleware.RequireAuth(h.validator, h.revocation, h.logger))

	claims.Post("/", h.createClaim)
	claims.Get("/my", h.myClaims)
	claims.Get("/available-properties", h.availableProperties)
	claims.Post("/documents/upload-url", h.uploadURL)
	claims.Post("/revoke-my-property", h.revokeMyProperty)
	claims.Get("/{claimID}/history", h.myClaimHistory)
	claims.Post("/{claimID}/cancel", h.cancelClaim)
	claims.Post("/{claimID}/documents", h.addDocument)
	claims.Delete("/{claimID}/documents/{documentID}", h.removeDocument)

	claims.Route("/owner", func(o chi.Router) {
		o.Get("/my-properties", h.myProperties)
		o.Get("/pending-tenant-claims", h.pendingTenantClaims)
		o.Post("/tenant-claims/{claimID}/review", h.ownerReview)
		o.Get("/property-history", h.propertyHistory)
	})

	claims.Route("/admin", func(a chi.Router) {
		view := middleware.RequireFeature(h.features, identity.FeatureClaimsView, h.logger)
		decide := middleware.RequireFeature(h.features, identity.FeatureClaimsReview, h.logger)

		a.With(view).Get("/", h.adminList)
		a.With(view).Get("/stats", h.adminStats)
		a.With(view).Get("/{claimID}/history", h.adminClaimHistory)
		a.With(decide).Post("/{claimID}/review", h.adminReview)
		a.With(decide).Post("/bulk-delete", h.adminBulkDelete)
	})

	r.Mount("/claims", claims)
}

// writeError logs and writes a service error. Internal failures are logged
// at error level and masked; everything else passes through with its code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	h.logger.WarnContext(ctx, op+" rejected",
		"request_id", requestID,
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}

func (h *Handler) claimIDFromURL(w http.ResponseWriter, r *http.Request) (id.ClaimID, bool) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "claim id must be a valid uuid"))
		return id.ClaimID{}, false
	}
	return claimID, true
}

func (h *Handler) createClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[createClaimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	claim, err := h.intake.Create(ctx, requestcontext.UserID(ctx), req.parsed)
	if err != nil {
		h.writeError(w, r, "create claim", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toClaimResponse(claim))
}

func (h *Handler) myClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := h.index.MyClaims(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "list my claims", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"claims": toClaimResponses(claims)})
}

func (h *Handler) myClaimHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	entries, err := h.index.MyClaimHistory(ctx, requestcontext.UserID(ctx), claimID)
	if err != nil {
		h.writeError(w, r, "claim history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": toHistoryResponses(entries)})
}

func (h *Handler) cancelClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	if err := h.intake.Cancel(ctx, requestcontext.UserID(ctx), claimID); err != nil {
		h.writeError(w, r, "cancel claim", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[addDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.intake.AddDocument(ctx, requestcontext.UserID(ctx), claimID, req.parsed)
	if err != nil {
		h.writeError(w, r, "add document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) removeDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "document id must be a valid uuid"))
		return
	}
	if err := h.intake.RemoveDocument(ctx, requestcontext.UserID(ctx), claimID, documentID); err != nil {
		h.writeError(w, r, "remove document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeMyProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[revokePropertyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	assignment, err := h.intake.RevokeOwnProperty(ctx, requestcontext.UserID(ctx), req.parsedKind, req.parsedID, req.Reason)
	if err != nil {
		h.writeError(w, r, "revoke own property", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *Handler) availableProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	props, err := h.directory.AvailableProperties(ctx)
	if err != nil {
		h.writeError(w, r, "available properties", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"properties": toAvailablePropertyResponses(props)})
}

func (h *Handler) uploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[uploadURLRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	key := "claims/" + requestcontext.UserID(ctx).String() + "/" + uuid.NewString() + "/" + req.FileName
	upload, err := h.uploads.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		h.writeError(w, r, "presign upload", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUploadURLResponse(upload))
}

func (h *Handler) myProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignments, err := h.index.MyProperties(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "list my properties", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"properties": toAssignmentResponses(assignments)})
}

func (h *Handler) pendingTenantClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := h.index.OwnerPendingTenantClaims(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "pending tenant claims", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"claims": toClaimResponses(claims)})
}

func (h *Handler) ownerReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ownerReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	decision := req.parsed
	decision.ClaimID = claimID
	claim, err := h.review.OwnerReview(ctx, requestcontext.UserID(ctx), decision)
	if err != nil {
		h.writeError(w, r, "owner review", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *Handler) propertyHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, err := models.ParsePropertyKind(r.URL.Query().Get("property_kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	propertyID, err := uuid.Parse(r.URL.Query().Get("property_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "property_id must be a valid uuid"))
		return
	}
	timeline, err := h.index.PropertyHistory(ctx, kind, propertyID, requestcontext.UserID(ctx))
	if err != nil {
		h.writeError(w, r, "property history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTimelineResponse(timeline))
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := claimFilterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, total, err := h.index.AdminList(ctx, filter)
	if err != nil {
		h.writeError(w, r, "admin list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claimListResponse{
		Claims: toClaimResponses(claims),
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}

func claimFilterFromQuery(r *http.Request) (store.ClaimFilter, error) {
	var filter store.ClaimFilter
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status := models.ClaimStatus(raw)
		switch status {
		case models.StatusPending, models.StatusReview, models.StatusApproved,
			models.StatusRejected, models.StatusDocumentsRequested:
		default:
			return filter, dErrors.New(dErrors.CodeValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if raw := q.Get("claim_type"); raw != "" {
		claimType, err := models.ParseClaimType(raw)
		if err != nil {
			return filter, err
		}
		filter.Type = &claimType
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, dErrors.New(dErrors.CodeValidation, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return filter, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.index.AdminStats(ctx)
	if err != nil {
		h.writeError(w, r, "admin stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatsResponse(counts))
}

func (h *Handler) adminClaimHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	entries, err := h.index.AdminClaimHistory(ctx, claimID)
	if err != nil {
		h.writeError(w, r, "admin claim history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": toHistoryResponses(entries)})
}

func (h *Handler) adminReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimIDFromURL(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[adminReviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	decision := req.parsed
	decision.ClaimID = claimID
	claim, err := h.review.AdminReview(ctx, requestcontext.UserID(ctx), decision)
	if err != nil {
		h.writeError(w, r, "admin review", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

func (h *Handler) adminBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[bulkDeleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.index.BulkDelete(ctx, req.parsed); err != nil {
		h.writeError(w, r, "bulk delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
