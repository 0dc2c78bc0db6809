package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
	"kvartal/pkg/platform/sentinel"
)

type propertyKey struct {
	kind models.PropertyKind
	id   uuid.UUID
}

// Memory is an in-memory directory seeded by tests and development wiring.
type Memory struct {
	mu         sync.RWMutex
	properties map[propertyKey]Property
	order      []propertyKey
}

func NewMemory() *Memory {
	return &Memory{properties: make(map[propertyKey]Property)}
}

// Seed registers a property. Later seeds with the same key overwrite.
func (m *Memory) Seed(p Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := propertyKey{kind: p.Kind, id: p.ID}
	if _, ok := m.properties[key]; !ok {
		m.order = append(m.order, key)
	}
	m.properties[key] = p
}

func (m *Memory) AvailableProperties(_ context.Context) ([]Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Property, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.properties[key])
	}
	return out, nil
}

func (m *Memory) BuildingOf(_ context.Context, kind models.PropertyKind, propertyID uuid.UUID) (id.BuildingID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[propertyKey{kind: kind, id: propertyID}]
	if !ok {
		return id.BuildingID{}, false, sentinel.ErrNotFound
	}
	if p.BuildingID.IsNil() {
		return id.BuildingID{}, false, nil
	}
	return p.BuildingID, true, nil
}
