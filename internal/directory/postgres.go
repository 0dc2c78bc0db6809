package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
	"kvartal/pkg/platform/sentinel"
)

// Postgres reads the reference tables owned by the portal's directory
// subsystem. Read-only by contract.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) AvailableProperties(ctx context.Context) ([]Property, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT 'apartment', id, label, building_id FROM apartments
		UNION ALL
		SELECT 'parking', id, label, building_id FROM parking_spots
		UNION ALL
		SELECT 'commercial', id, name, NULL FROM organizations
		ORDER BY 1, 3`)
	if err != nil {
		return nil, fmt.Errorf("list available properties: %w", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var (
			prop     Property
			building uuid.NullUUID
		)
		if err := rows.Scan(&prop.Kind, &prop.ID, &prop.Label, &building); err != nil {
			return nil, err
		}
		if building.Valid {
			prop.BuildingID = id.BuildingID(building.UUID)
		}
		out = append(out, prop)
	}
	return out, rows.Err()
}

func (p *Postgres) BuildingOf(ctx context.Context, kind models.PropertyKind, propertyID uuid.UUID) (id.BuildingID, bool, error) {
	var table string
	switch kind {
	case models.PropertyKindApartment:
		table = "apartments"
	case models.PropertyKindParking:
		table = "parking_spots"
	case models.PropertyKindCommercial:
		// Organizations are not attached to buildings.
		var exists bool
		err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, propertyID).Scan(&exists)
		if err != nil {
			return id.BuildingID{}, false, fmt.Errorf("lookup organization: %w", err)
		}
		if !exists {
			return id.BuildingID{}, false, sentinel.ErrNotFound
		}
		return id.BuildingID{}, false, nil
	default:
		return id.BuildingID{}, false, fmt.Errorf("unknown property kind %q", kind)
	}

	var building uuid.UUID
	err := p.db.QueryRowContext(ctx,
		`SELECT building_id FROM `+table+` WHERE id = $1`, propertyID).Scan(&building)
	if errors.Is(err, sql.ErrNoRows) {
		return id.BuildingID{}, false, sentinel.ErrNotFound
	}
	if err != nil {
		return id.BuildingID{}, false, fmt.Errorf("lookup building: %w", err)
	}
	return id.BuildingID(building), true, nil
}
