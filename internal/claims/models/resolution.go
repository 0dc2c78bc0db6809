package models

import (
	"strings"

	dErrors "kvartal/pkg/domain-errors"
)

// ResolutionTemplate is a canned reason code for a review or revocation
// decision. Templates ending in "_custom" require caller-supplied text;
// all others store their fixed mapped string regardless of supplied text.
type ResolutionTemplate string

const (
	TemplateApprovedAllCorrect          ResolutionTemplate = "approved_all_correct"
	TemplateApprovedCustom              ResolutionTemplate = "approved_custom"
	TemplateRejectedNoDocuments         ResolutionTemplate = "rejected_no_documents"
	TemplateRejectedBadDocuments        ResolutionTemplate = "rejected_bad_documents"
	TemplateRejectedWrongProperty       ResolutionTemplate = "rejected_wrong_property"
	TemplateRejectedCustom              ResolutionTemplate = "rejected_custom"
	TemplateDocumentsRequestedMore      ResolutionTemplate = "documents_requested_more_needed"
	TemplateDocumentsRequestedCustom    ResolutionTemplate = "documents_requested_custom"
	TemplateDocumentsResubmitted        ResolutionTemplate = "documents_resubmitted"
	TemplateRevokedSelf                 ResolutionTemplate = "self_revoked"
	TemplateRevokedSuperseded           ResolutionTemplate = "superseded"
	TemplateRevokedByAdmin              ResolutionTemplate = "admin_revoked"
	TemplateRevokedCustom               ResolutionTemplate = "revoked_custom"
)

// cannedText maps non-custom templates to the fixed text shown to users.
var cannedText = map[ResolutionTemplate]string{
	TemplateApprovedAllCorrect:     "Documents verified, ownership confirmed.",
	TemplateRejectedNoDocuments:    "No supporting documents were provided.",
	TemplateRejectedBadDocuments:   "The provided documents could not be verified.",
	TemplateRejectedWrongProperty:  "The documents do not match the claimed property.",
	TemplateDocumentsRequestedMore: "Additional documents are required to verify the claim.",
	TemplateDocumentsResubmitted:   "New documents submitted for review.",
	TemplateRevokedSelf:            "Assignment revoked at the holder's request.",
	TemplateRevokedSuperseded:      "Assignment superseded by a newer approval.",
	TemplateRevokedByAdmin:         "Assignment revoked by an administrator.",
}

// templatesByStatus lists which admin templates may accompany each decision.
var templatesByStatus = map[ClaimStatus][]ResolutionTemplate{
	StatusApproved: {TemplateApprovedAllCorrect, TemplateApprovedCustom},
	StatusRejected: {
		TemplateRejectedNoDocuments,
		TemplateRejectedBadDocuments,
		TemplateRejectedWrongProperty,
		TemplateRejectedCustom,
	},
	StatusDocumentsRequested: {TemplateDocumentsRequestedMore, TemplateDocumentsRequestedCustom},
}

// IsCustom reports whether the template requires caller-supplied text.
func (t ResolutionTemplate) IsCustom() bool {
	return strings.HasSuffix(string(t), "_custom")
}

// ValidForStatus reports whether the template belongs to the decision's
// template set.
func (t ResolutionTemplate) ValidForStatus(s ClaimStatus) bool {
	for _, allowed := range templatesByStatus[s] {
		if allowed == t {
			return true
		}
	}
	return false
}

// CustomTemplateFor returns the "_custom" template of a decision status.
// Owner reviews always resolve through it.
func CustomTemplateFor(s ClaimStatus) (ResolutionTemplate, bool) {
	switch s {
	case StatusApproved:
		return TemplateApprovedCustom, true
	case StatusRejected:
		return TemplateRejectedCustom, true
	case StatusDocumentsRequested:
		return TemplateDocumentsRequestedCustom, true
	}
	return "", false
}

// ResolveText returns the resolution text to store: the caller's text for
// "_custom" templates (required non-empty), the fixed mapped string for
// canned ones.
func ResolveText(t ResolutionTemplate, customText string) (string, error) {
	if t.IsCustom() {
		customText = strings.TrimSpace(customText)
		if customText == "" {
			return "", dErrors.New(dErrors.CodeValidation, "resolution text is required for template "+string(t))
		}
		return customText, nil
	}
	text, ok := cannedText[t]
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown resolution template: "+string(t))
	}
	return text, nil
}
