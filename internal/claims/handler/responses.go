package handler

import (
	"time"

	"kvartal/internal/claims/index"
	"kvartal/internal/claims/models"
	"kvartal/internal/directory"
	"kvartal/internal/files"
)

type propertyResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type claimResponse struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	ClaimType    string           `json:"claim_type"`
	ClaimedRole  string           `json:"claimed_role"`
	Property     propertyResponse `json:"property"`
	Status       string           `json:"status"`
	UserComment  string           `json:"user_comment,omitempty"`
	AdminComment string           `json:"admin_comment,omitempty"`
	ReviewedBy   *string          `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toClaimResponse(c *models.Claim) claimResponse {
	resp := claimResponse{
		ID:          c.ID.String(),
		UserID:      c.UserID.String(),
		ClaimType:   string(c.Type),
		ClaimedRole: string(c.ClaimedRole),
		Property: propertyResponse{
			Kind: string(c.Property.Kind()),
			ID:   c.Property.ID().String(),
		},
		Status:       string(c.Status),
		UserComment:  c.UserComment,
		AdminComment: c.AdminComment,
		ReviewedAt:   c.ReviewedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.ReviewedBy != nil {
		s := c.ReviewedBy.String()
		resp.ReviewedBy = &s
	}
	return resp
}

func toClaimResponses(claims []*models.Claim) []claimResponse {
	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	return out
}

type documentResponse struct {
	ID                   string     `json:"id"`
	ClaimID              string     `json:"claim_id"`
	DocumentType         string     `json:"document_type"`
	FileURL              string     `json:"file_url"`
	FileName             string     `json:"file_name"`
	FileSize             int64      `json:"file_size"`
	MimeType             string     `json:"mime_type"`
	ThumbnailURL         string     `json:"thumbnail_url,omitempty"`
	ScheduledForDeletion *time.Time `json:"scheduled_for_deletion,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toDocumentResponse(d *models.ClaimDocument) documentResponse {
	return documentResponse{
		ID:                   d.ID.String(),
		ClaimID:              d.ClaimID.String(),
		DocumentType:         string(d.Type),
		FileURL:              d.FileURL,
		FileName:             d.FileName,
		FileSize:             d.FileSize,
		MimeType:             d.MimeType,
		ThumbnailURL:         d.ThumbnailURL,
		ScheduledForDeletion: d.ScheduledForDeletion,
		CreatedAt:            d.CreatedAt,
	}
}

type historyEntryResponse struct {
	ID             string    `json:"id"`
	ClaimID        string    `json:"claim_id"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	Template       string    `json:"template"`
	ResolutionText string    `json:"resolution_text,omitempty"`
	ChangedBy      string    `json:"changed_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func toHistoryResponses(entries []*models.ClaimHistoryEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			ID:             e.ID.String(),
			ClaimID:        e.ClaimID.String(),
			FromStatus:     string(e.FromStatus),
			ToStatus:       string(e.ToStatus),
			Template:       string(e.Template),
			ResolutionText: e.ResolutionText,
			ChangedBy:      e.ChangedBy.String(),
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}

type assignmentResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	PropertyKind       string     `json:"property_kind"`
	PropertyID         string     `json:"property_id"`
	Role               string     `json:"role"`
	Active             bool       `json:"active"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
	RevokedBy          *string    `json:"revoked_by,omitempty"`
	RevocationTemplate string     `json:"revocation_template,omitempty"`
	RevocationReason   string     `json:"revocation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAssignmentResponse(a *models.PropertyAssignment) assignmentResponse {
	resp := assignmentResponse{
		ID:                 a.ID.String(),
		UserID:             a.UserID.String(),
		PropertyKind:       string(a.Kind),
		PropertyID:         a.PropertyID.String(),
		Role:               string(a.Role),
		Active:             a.Active(),
		RevokedAt:          a.RevokedAt,
		RevocationTemplate: string(a.RevocationTemplate),
		RevocationReason:   a.RevocationReason,
		CreatedAt:          a.CreatedAt,
	}
	if a.RevokedBy != nil {
		s := a.RevokedBy.String()
		resp.RevokedBy = &s
	}
	return resp
}

func toAssignmentResponses(assignments []*models.PropertyAssignment) []assignmentResponse {
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	return out
}

type claimListResponse struct {
	Claims []claimResponse `json:"claims"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type timelineResponse struct {
	Claims      []claimResponse      `json:"claims"`
	Assignments []assignmentResponse `json:"assignments"`
}

func toTimelineResponse(t *index.PropertyTimeline) timelineResponse {
	return timelineResponse{
		Claims:      toClaimResponses(t.Claims),
		Assignments: toAssignmentResponses(t.Assignments),
	}
}

type statsResponse struct {
	Pending            int `json:"pending"`
	Review             int `json:"review"`
	Approved           int `json:"approved"`
	Rejected           int `json:"rejected"`
	DocumentsRequested int `json:"documents_requested"`
}

func toStatsResponse(counts map[models.ClaimStatus]int) statsResponse {
	return statsResponse{
		Pending:            counts[models.StatusPending],
		Review:             counts[models.StatusReview],
		Approved:           counts[models.StatusApproved],
		Rejected:           counts[models.StatusRejected],
		DocumentsRequested: counts[models.StatusDocumentsRequested],
	}
}

type availablePropertyResponse struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Label      string `json:"label"`
	BuildingID string `json:"building_id,omitempty"`
}

func toAvailablePropertyResponses(props []directory.Property) []availablePropertyResponse {
	out := make([]availablePropertyResponse, 0, len(props))
	for _, p := range props {
		resp := availablePropertyResponse{
			Kind:  string(p.Kind),
			ID:    p.ID.String(),
			Label: p.Label,
		}
		if !p.BuildingID.IsNil() {
			resp.BuildingID = p.BuildingID.String()
		}
		out = append(out, resp)
	}
	return out
}

type uploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	ExpiresIn int    `json:"expires_in"`
}

func toUploadURLResponse(u *files.Upload) uploadURLResponse {
	return uploadURLResponse{
		UploadURL: u.UploadURL,
		FileURL:   u.FileURL,
		ExpiresIn: int(u.ExpiresIn.Seconds()),
	}
}
