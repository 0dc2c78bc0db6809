// Package models defines the claim lifecycle domain types: claims and their
// tagged-union property reference, attached documents, the append-only
// history entries, and the derived assignment/role records.
package models

import (
	"time"

	"github.com/google/uuid"

	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
)

// ClaimType says which property hierarchy a claim targets.
type ClaimType string

const (
	ClaimTypeApartment  ClaimType = "apartment"
	ClaimTypeParking    ClaimType = "parking"
	ClaimTypeCommercial ClaimType = "commercial"
)

// Role is a capability a user can claim over a property.
type Role string

const (
	RoleApartmentOwner      Role = "apartment_owner"
	RoleApartmentResident   Role = "apartment_resident"
	RoleParkingOwner        Role = "parking_owner"
	RoleParkingResident     Role = "parking_resident"
	RoleStoreOwner          Role = "store_owner"
	RoleStoreRepresentative Role = "store_representative"
)

// rolesByType is the only mapping from claim type to permissible roles.
var rolesByType = map[ClaimType][]Role{
	ClaimTypeApartment:  {RoleApartmentOwner, RoleApartmentResident},
	ClaimTypeParking:    {RoleParkingOwner, RoleParkingResident},
	ClaimTypeCommercial: {RoleStoreOwner, RoleStoreRepresentative},
}

// ParseClaimType validates a claim type string.
func ParseClaimType(s string) (ClaimType, error) {
	t := ClaimType(s)
	if _, ok := rolesByType[t]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown claim type: "+s)
	}
	return t, nil
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleApartmentOwner, RoleApartmentResident,
		RoleParkingOwner, RoleParkingResident,
		RoleStoreOwner, RoleStoreRepresentative:
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
}

// RoleValidForType reports whether a role belongs to the claim type's
// permitted subset.
func RoleValidForType(t ClaimType, r Role) bool {
	for _, allowed := range rolesByType[t] {
		if allowed == r {
			return true
		}
	}
	return false
}

// IsResidentRole reports whether the role is a tenant-type role, the only
// kind an owner may review.
func (r Role) IsResidentRole() bool {
	return r == RoleApartmentResident || r == RoleParkingResident
}

// IsOwnerRole reports whether the role marks property ownership.
func (r Role) IsOwnerRole() bool {
	return r == RoleApartmentOwner || r == RoleParkingOwner
}

// SiblingRole returns the same-family role on the other property kind.
// The owner family pairs apartment and parking ownership; the resident
// family pairs the two tenancies. Commercial roles have no sibling.
func (r Role) SiblingRole() (Role, bool) {
	switch r {
	case RoleApartmentOwner:
		return RoleParkingOwner, true
	case RoleParkingOwner:
		return RoleApartmentOwner, true
	case RoleApartmentResident:
		return RoleParkingResident, true
	case RoleParkingResident:
		return RoleApartmentResident, true
	}
	return "", false
}

// PropertyKind discriminates the tagged union of property references.
type PropertyKind string

const (
	PropertyKindApartment  PropertyKind = "apartment"
	PropertyKindParking    PropertyKind = "parking"
	PropertyKindCommercial PropertyKind = "commercial"
)

// ParsePropertyKind validates a property kind string.
func ParsePropertyKind(s string) (PropertyKind, error) {
	k := PropertyKind(s)
	switch k {
	case PropertyKindApartment, PropertyKindParking, PropertyKindCommercial:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown property kind: "+s)
}

// ClaimType returns the claim type that targets this property hierarchy.
func (k PropertyKind) ClaimType() ClaimType {
	switch k {
	case PropertyKindApartment:
		return ClaimTypeApartment
	case PropertyKindParking:
		return ClaimTypeParking
	default:
		return ClaimTypeCommercial
	}
}

// OwnerRole returns the role that marks ownership of this property kind.
func (k PropertyKind) OwnerRole() Role {
	switch k {
	case PropertyKindApartment:
		return RoleApartmentOwner
	case PropertyKindParking:
		return RoleParkingOwner
	default:
		return RoleStoreOwner
	}
}

// PropertyRef is the discriminated property reference. The storage layer
// keeps three nullable columns; at the application layer only the
// constructors below can produce a value, so an invalid combination cannot
// exist in memory.
type PropertyRef struct {
	kind PropertyKind
	id   uuid.UUID
}

func NewApartmentRef(apartmentID id.ApartmentID) PropertyRef {
	return PropertyRef{kind: PropertyKindApartment, id: uuid.UUID(apartmentID)}
}

func NewParkingRef(spotID id.ParkingSpotID) PropertyRef {
	return PropertyRef{kind: PropertyKindParking, id: uuid.UUID(spotID)}
}

func NewCommercialRef(orgID id.OrganizationID) PropertyRef {
	return PropertyRef{kind: PropertyKindCommercial, id: uuid.UUID(orgID)}
}

// ParsePropertyRef enforces the exactly-one rule over the three nullable
// identifiers the transport layer receives.
func ParsePropertyRef(apartmentID, parkingSpotID, organizationID string) (PropertyRef, error) {
	set := 0
	for _, v := range []string{apartmentID, parkingSpotID, organizationID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return PropertyRef{}, dErrors.New(dErrors.CodeValidation, "exactly one of apartment_id, parking_spot_id, organization_id must be set")
	}
	switch {
	case apartmentID != "":
		aid, err := id.ParseApartmentID(apartmentID)
		if err != nil {
			return PropertyRef{}, err
		}
		return NewApartmentRef(aid), nil
	case parkingSpotID != "":
		pid, err := id.ParseParkingSpotID(parkingSpotID)
		if err != nil {
			return PropertyRef{}, err
		}
		return NewParkingRef(pid), nil
	default:
		oid, err := id.ParseOrganizationID(organizationID)
		if err != nil {
			return PropertyRef{}, err
		}
		return NewCommercialRef(oid), nil
	}
}

func (p PropertyRef) Kind() PropertyKind { return p.kind }

// ID returns the raw property identifier. The kind says which directory it
// points into.
func (p PropertyRef) ID() uuid.UUID { return p.id }

func (p PropertyRef) IsZero() bool { return p.kind == "" }

// MatchesType reports whether the reference targets the hierarchy the claim
// type names.
func (p PropertyRef) MatchesType(t ClaimType) bool {
	switch t {
	case ClaimTypeApartment:
		return p.kind == PropertyKindApartment
	case ClaimTypeParking:
		return p.kind == PropertyKindParking
	case ClaimTypeCommercial:
		return p.kind == PropertyKindCommercial
	}
	return false
}

// ClaimStatus is the review state of a claim.
type ClaimStatus string

const (
	StatusPending            ClaimStatus = "pending"
	StatusReview             ClaimStatus = "review"
	StatusApproved           ClaimStatus = "approved"
	StatusRejected           ClaimStatus = "rejected"
	StatusDocumentsRequested ClaimStatus = "documents_requested"
)

// IsTerminal reports whether the status ends the claim lifecycle.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsOutstanding reports whether the claim still awaits a decision.
func (s ClaimStatus) IsOutstanding() bool {
	return s == StatusPending || s == StatusReview || s == StatusDocumentsRequested
}

// DocumentsEditable reports whether documents may be attached or removed in
// this status.
func (s ClaimStatus) DocumentsEditable() bool {
	return s.IsOutstanding()
}

// MaxDocumentsPerClaim caps evidence per claim.
const MaxDocumentsPerClaim = 10

// Claim is a user's assertion of a role over a property, pending review.
type Claim struct {
	ID           id.ClaimID
	UserID       id.UserID
	Type         ClaimType
	ClaimedRole  Role
	Property     PropertyRef
	Status       ClaimStatus
	UserComment  string
	AdminComment string
	ReviewedBy   *id.UserID
	ReviewedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentType classifies attached evidence.
type DocumentType string

const (
	DocumentTypeEGRN     DocumentType = "egrn"
	DocumentTypeContract DocumentType = "contract"
	DocumentTypePassport DocumentType = "passport"
	DocumentTypeOther    DocumentType = "other"
)

// ParseDocumentType validates a document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	switch t {
	case DocumentTypeEGRN, DocumentTypeContract, DocumentTypePassport, DocumentTypeOther:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown document type: "+s)
}

// ClaimDocument is evidence attached to a claim.
type ClaimDocument struct {
	ID                   id.DocumentID
	ClaimID              id.ClaimID
	Type                 DocumentType
	FileURL              string
	FileName             string
	FileSize             int64
	MimeType             string
	ThumbnailURL         string
	ScheduledForDeletion *time.Time
	CreatedAt            time.Time
}

// ClaimHistoryEntry is an immutable record of one status transition.
type ClaimHistoryEntry struct {
	ID             uuid.UUID
	ClaimID        id.ClaimID
	FromStatus     ClaimStatus
	ToStatus       ClaimStatus
	Template       ResolutionTemplate
	ResolutionText string
	ChangedBy      id.UserID
	CreatedAt      time.Time
}

// PropertyAssignment is the durable, revocable grant created when a claim
// is approved. A nil RevokedAt means the assignment is active.
type PropertyAssignment struct {
	ID                 id.AssignmentID
	UserID             id.UserID
	Kind               PropertyKind
	PropertyID         uuid.UUID
	Role               Role
	RevokedAt          *time.Time
	RevokedBy          *id.UserID
	RevocationTemplate ResolutionTemplate
	RevocationReason   string
	CreatedAt          time.Time
}

// Active reports whether the assignment currently grants its role.
func (a PropertyAssignment) Active() bool { return a.RevokedAt == nil }

// UserRole is the derived capability flag. This subsystem only adds and
// removes entries it derived itself.
type UserRole struct {
	UserID    id.UserID
	Role      Role
	CreatedAt time.Time
}

// UserBuildingInterest links a user to a building once a claim on one of
// the building's properties is approved. Created, never revoked.
type UserBuildingInterest struct {
	UserID     id.UserID
	BuildingID id.BuildingID
	AutoAdded  bool
	CreatedAt  time.Time
}
