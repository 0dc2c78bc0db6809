package handler

import (
	"strings"

	"github.com/google/uuid"

	"kvartal/internal/claims/intake"
	"kvartal/internal/claims/models"
	"kvartal/internal/claims/review"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
)

// documentRequest is one evidence file reference in a request body.
type documentRequest struct {
	DocumentType string `json:"document_type"`
	FileURL      string `json:"file_url"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

func (r *documentRequest) toInput() (intake.DocumentInput, error) {
	docType, err := models.ParseDocumentType(r.DocumentType)
	if err != nil {
		return intake.DocumentInput{}, err
	}
	if strings.TrimSpace(r.FileURL) == "" {
		return intake.DocumentInput{}, dErrors.New(dErrors.CodeValidation, "file_url is required")
	}
	if strings.TrimSpace(r.FileName) == "" {
		return intake.DocumentInput{}, dErrors.New(dErrors.CodeValidation, "file_name is required")
	}
	return intake.DocumentInput{
		Type:         docType,
		FileURL:      r.FileURL,
		FileName:     r.FileName,
		FileSize:     r.FileSize,
		MimeType:     r.MimeType,
		ThumbnailURL: r.ThumbnailURL,
	}, nil
}

type createClaimRequest struct {
	ClaimType      string            `json:"claim_type"`
	ClaimedRole    string            `json:"claimed_role"`
	ApartmentID    string            `json:"apartment_id,omitempty"`
	ParkingSpotID  string            `json:"parking_spot_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Comment        string            `json:"comment,omitempty"`
	Documents      []documentRequest `json:"documents,omitempty"`

	parsed intake.CreateInput
}

func (r *createClaimRequest) Validate() error {
	claimType, err := models.ParseClaimType(r.ClaimType)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(r.ClaimedRole)
	if err != nil {
		return err
	}
	property, err := models.ParsePropertyRef(r.ApartmentID, r.ParkingSpotID, r.OrganizationID)
	if err != nil {
		return err
	}
	in := intake.CreateInput{
		Type:     claimType,
		Role:     role,
		Property: property,
		Comment:  r.Comment,
	}
	for i := range r.Documents {
		doc, err := r.Documents[i].toInput()
		if err != nil {
			return err
		}
		in.Documents = append(in.Documents, doc)
	}
	r.parsed = in
	return nil
}

type addDocumentRequest struct {
	documentRequest

	parsed intake.DocumentInput
}

func (r *addDocumentRequest) Validate() error {
	doc, err := r.toInput()
	if err != nil {
		return err
	}
	r.parsed = doc
	return nil
}

type adminReviewRequest struct {
	Status         string `json:"status"`
	Template       string `json:"template"`
	ResolutionText string `json:"resolution_text,omitempty"`

	parsed review.Decision
}

func (r *adminReviewRequest) Validate() error {
	status := models.ClaimStatus(r.Status)
	switch status {
	case models.StatusApproved, models.StatusRejected, models.StatusDocumentsRequested:
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be approved, rejected, or documents_requested")
	}
	if strings.TrimSpace(r.Template) == "" {
		return dErrors.New(dErrors.CodeValidation, "template is required")
	}
	r.parsed = review.Decision{
		NewStatus:      status,
		Template:       models.ResolutionTemplate(r.Template),
		ResolutionText: r.ResolutionText,
	}
	return nil
}

type ownerReviewRequest struct {
	Status         string `json:"status"`
	ResolutionText string `json:"resolution_text"`

	parsed review.Decision
}

func (r *ownerReviewRequest) Validate() error {
	status := models.ClaimStatus(r.Status)
	if status != models.StatusApproved && status != models.StatusRejected {
		return dErrors.New(dErrors.CodeValidation, "status must be approved or rejected")
	}
	r.parsed = review.Decision{
		NewStatus:      status,
		ResolutionText: r.ResolutionText,
	}
	return nil
}

type revokePropertyRequest struct {
	PropertyKind string `json:"property_kind"`
	PropertyID   string `json:"property_id"`
	Reason       string `json:"reason,omitempty"`

	parsedKind models.PropertyKind
	parsedID   uuid.UUID
}

func (r *revokePropertyRequest) Validate() error {
	kind, err := models.ParsePropertyKind(r.PropertyKind)
	if err != nil {
		return err
	}
	if kind == models.PropertyKindCommercial {
		return dErrors.New(dErrors.CodeValidation, "commercial grants carry no revocable assignment")
	}
	propertyID, err := uuid.Parse(r.PropertyID)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "property_id must be a valid uuid")
	}
	r.parsedKind = kind
	r.parsedID = propertyID
	return nil
}

type bulkDeleteRequest struct {
	ClaimIDs []string `json:"claim_ids"`
	Reason   string   `json:"reason,omitempty"`

	parsed []id.ClaimID
}

func (r *bulkDeleteRequest) Validate() error {
	if len(r.ClaimIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "claim_ids must not be empty")
	}
	parsed := make([]id.ClaimID, 0, len(r.ClaimIDs))
	for _, raw := range r.ClaimIDs {
		claimID, err := id.ParseClaimID(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, claimID)
	}
	r.parsed = parsed
	return nil
}

type uploadURLRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (r *uploadURLRequest) Validate() error {
	if strings.TrimSpace(r.FileName) == "" {
		return dErrors.New(dErrors.CodeValidation, "file_name is required")
	}
	if strings.TrimSpace(r.ContentType) == "" {
		return dErrors.New(dErrors.CodeValidation, "content_type is required")
	}
	return nil
}
