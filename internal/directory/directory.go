// Package directory exposes the read-only building/apartment/parking
// reference data. The claims subsystem never mutates it; it resolves building
// identifiers for interest tracking and lists claimable properties for the
// intake UI.
package directory

import (
	"context"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
)

// Property is one claimable unit in the directory.
type Property struct {
	Kind       models.PropertyKind `json:"kind"`
	ID         uuid.UUID           `json:"id"`
	Label      string              `json:"label"`
	BuildingID id.BuildingID       `json:"building_id,omitempty"`
}

// Directory answers reference-data queries.
type Directory interface {
	// AvailableProperties lists every claimable property.
	AvailableProperties(ctx context.Context) ([]Property, error)
	// BuildingOf resolves the building a property belongs to. The second
	// return is false for properties without a building (organizations).
	BuildingOf(ctx context.Context, kind models.PropertyKind, propertyID uuid.UUID) (id.BuildingID, bool, error)
}
