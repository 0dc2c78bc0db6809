// Package domain holds typed identifiers used across the portal. Each ID is
// a distinct uuid-backed type so the compiler rejects cross-assignment, and
// each Parse function enforces validity at the trust boundary.
package domain

import (
	"github.com/google/uuid"

	dErrors "kvartal/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated portal user.
	UserID uuid.UUID
	// ClaimID identifies a property ownership claim.
	ClaimID uuid.UUID
	// DocumentID identifies a document attached to a claim.
	DocumentID uuid.UUID
	// AssignmentID identifies a property assignment row.
	AssignmentID uuid.UUID
	// ApartmentID identifies an apartment in the reference directory.
	ApartmentID uuid.UUID
	// ParkingSpotID identifies a parking spot in the reference directory.
	ParkingSpotID uuid.UUID
	// OrganizationID identifies a commercial-unit organization.
	OrganizationID uuid.UUID
	// BuildingID identifies a building in the reference directory.
	BuildingID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s, "claim id")
	return ClaimID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

func ParseApartmentID(s string) (ApartmentID, error) {
	u, err := parseUUID(s, "apartment id")
	return ApartmentID(u), err
}

func ParseParkingSpotID(s string) (ParkingSpotID, error) {
	u, err := parseUUID(s, "parking spot id")
	return ParkingSpotID(u), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization id")
	return OrganizationID(u), err
}

func ParseBuildingID(s string) (BuildingID, error) {
	u, err := parseUUID(s, "building id")
	return BuildingID(u), err
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ClaimID) String() string        { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id AssignmentID) String() string   { return uuid.UUID(id).String() }
func (id ApartmentID) String() string    { return uuid.UUID(id).String() }
func (id ParkingSpotID) String() string  { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id BuildingID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AssignmentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ApartmentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ParkingSpotID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BuildingID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewUserID and friends mint fresh identifiers. Used by stores and tests.
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewClaimID() ClaimID               { return ClaimID(uuid.New()) }
func NewDocumentID() DocumentID         { return DocumentID(uuid.New()) }
func NewAssignmentID() AssignmentID     { return AssignmentID(uuid.New()) }
func NewApartmentID() ApartmentID       { return ApartmentID(uuid.New()) }
func NewParkingSpotID() ParkingSpotID   { return ParkingSpotID(uuid.New()) }
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }
func NewBuildingID() BuildingID         { return BuildingID(uuid.New()) }
