package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
	dErrors "kvartal/pkg/domain-errors"
	"kvartal/pkg/platform/sentinel"
)

// Memory is the in-memory Store used by unit tests and local development.
// All reads copy so callers never share mutable state with the store.
type Memory struct {
	mu          sync.RWMutex
	claims      map[id.ClaimID]*models.Claim
	documents   map[id.DocumentID]*models.ClaimDocument
	history     []*models.ClaimHistoryEntry
	assignments map[id.AssignmentID]*models.PropertyAssignment
	userRoles   map[id.UserID]map[models.Role]time.Time
	interests   map[id.UserID]map[id.BuildingID]models.UserBuildingInterest
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		claims:      make(map[id.ClaimID]*models.Claim),
		documents:   make(map[id.DocumentID]*models.ClaimDocument),
		assignments: make(map[id.AssignmentID]*models.PropertyAssignment),
		userRoles:   make(map[id.UserID]map[models.Role]time.Time),
		interests:   make(map[id.UserID]map[id.BuildingID]models.UserBuildingInterest),
	}
}

func copyClaim(c *models.Claim) *models.Claim {
	cp := *c
	if c.ReviewedBy != nil {
		rb := *c.ReviewedBy
		cp.ReviewedBy = &rb
	}
	if c.ReviewedAt != nil {
		ra := *c.ReviewedAt
		cp.ReviewedAt = &ra
	}
	return &cp
}

func copyDocument(d *models.ClaimDocument) *models.ClaimDocument {
	cp := *d
	if d.ScheduledForDeletion != nil {
		s := *d.ScheduledForDeletion
		cp.ScheduledForDeletion = &s
	}
	return &cp
}

func copyAssignment(a *models.PropertyAssignment) *models.PropertyAssignment {
	cp := *a
	if a.RevokedAt != nil {
		r := *a.RevokedAt
		cp.RevokedAt = &r
	}
	if a.RevokedBy != nil {
		r := *a.RevokedBy
		cp.RevokedBy = &r
	}
	return &cp
}

func (m *Memory) CreateClaim(_ context.Context, claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.claims[claim.ID]; exists {
		return sentinel.ErrConflict
	}
	// Mirrors the partial unique index on pending claims.
	if claim.Status == models.StatusPending {
		for _, c := range m.claims {
			if c.UserID == claim.UserID && c.Property == claim.Property && c.Status == models.StatusPending {
				return sentinel.ErrConflict
			}
		}
	}
	m.claims[claim.ID] = copyClaim(claim)
	return nil
}

func (m *Memory) GetClaim(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	claim, ok := m.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyClaim(claim), nil
}

func (m *Memory) UpdateClaim(_ context.Context, claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[claim.ID]; !ok {
		return sentinel.ErrNotFound
	}
	m.claims[claim.ID] = copyClaim(claim)
	return nil
}

func (m *Memory) DeleteClaim(_ context.Context, claimID id.ClaimID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[claimID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.claims, claimID)
	return nil
}

func (m *Memory) FindPendingClaim(_ context.Context, userID id.UserID, property models.PropertyRef) (*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.claims {
		if c.UserID == userID && c.Property == property && c.Status == models.StatusPending {
			return copyClaim(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func sortClaimsNewestFirst(claims []*models.Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].CreatedAt.After(claims[j].CreatedAt)
	})
}

func (m *Memory) ListClaimsByUser(_ context.Context, userID id.UserID) ([]*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Claim
	for _, c := range m.claims {
		if c.UserID == userID {
			out = append(out, copyClaim(c))
		}
	}
	sortClaimsNewestFirst(out)
	return out, nil
}

func (m *Memory) ListClaimsByProperty(_ context.Context, property models.PropertyRef) ([]*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Claim
	for _, c := range m.claims {
		if c.Property == property {
			out = append(out, copyClaim(c))
		}
	}
	sortClaimsNewestFirst(out)
	return out, nil
}

func (m *Memory) ListPendingResidentClaims(_ context.Context) ([]*models.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Claim
	for _, c := range m.claims {
		if c.Status == models.StatusPending && c.ClaimedRole.IsResidentRole() {
			out = append(out, copyClaim(c))
		}
	}
	sortClaimsNewestFirst(out)
	return out, nil
}

func (m *Memory) ListClaims(_ context.Context, filter ClaimFilter) ([]*models.Claim, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*models.Claim
	for _, c := range m.claims {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		matched = append(matched, copyClaim(c))
	}
	sortClaimsNewestFirst(matched)
	total := len(matched)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *Memory) CountClaimsByStatus(_ context.Context) (map[models.ClaimStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[models.ClaimStatus]int)
	for _, c := range m.claims {
		counts[c.Status]++
	}
	return counts, nil
}

func (m *Memory) AddDocument(_ context.Context, doc *models.ClaimDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.documents[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	m.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (m *Memory) GetDocument(_ context.Context, documentID id.DocumentID) (*models.ClaimDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyDocument(doc), nil
}

func (m *Memory) DeleteDocument(_ context.Context, documentID id.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[documentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.documents, documentID)
	return nil
}

func (m *Memory) ListDocuments(_ context.Context, claimID id.ClaimID) ([]*models.ClaimDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ClaimDocument
	for _, d := range m.documents {
		if d.ClaimID == claimID {
			out = append(out, copyDocument(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CountDocuments(_ context.Context, claimID id.ClaimID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.documents {
		if d.ClaimID == claimID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ScheduleDocumentsForDeletion(_ context.Context, claimID id.ClaimID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.documents {
		if d.ClaimID == claimID {
			t := at
			d.ScheduledForDeletion = &t
		}
	}
	return nil
}

func (m *Memory) DocumentsDueForDeletion(_ context.Context, before time.Time) ([]*models.ClaimDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ClaimDocument
	for _, d := range m.documents {
		if d.ScheduledForDeletion != nil && !d.ScheduledForDeletion.After(before) {
			out = append(out, copyDocument(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledForDeletion.Before(*out[j].ScheduledForDeletion)
	})
	return out, nil
}

func (m *Memory) DeleteDocumentsByClaim(_ context.Context, claimID id.ClaimID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for docID, d := range m.documents {
		if d.ClaimID == claimID {
			delete(m.documents, docID)
		}
	}
	return nil
}

func (m *Memory) AppendHistory(_ context.Context, entry *models.ClaimHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.history = append(m.history, &cp)
	return nil
}

func (m *Memory) ListHistory(_ context.Context, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ClaimHistoryEntry
	// Append order is chronological; walk backwards for most recent first.
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ClaimID == claimID {
			cp := *m.history[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) DeleteHistoryByClaim(_ context.Context, claimID id.ClaimID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	for _, e := range m.history {
		if e.ClaimID != claimID {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

func (m *Memory) CreateAssignment(_ context.Context, assignment *models.PropertyAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assignments[assignment.ID]; exists {
		return sentinel.ErrConflict
	}
	m.assignments[assignment.ID] = copyAssignment(assignment)
	return nil
}

func (m *Memory) FindActiveAssignment(_ context.Context, userID id.UserID, kind models.PropertyKind, propertyID uuid.UUID) (*models.PropertyAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.assignments {
		if a.UserID == userID && a.Kind == kind && a.PropertyID == propertyID && a.Active() {
			return copyAssignment(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (m *Memory) ListActiveAssignmentsByUser(_ context.Context, userID id.UserID) ([]*models.PropertyAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PropertyAssignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.Active() {
			out = append(out, copyAssignment(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListActiveAssignmentsByRole(_ context.Context, userID id.UserID, role models.Role) ([]*models.PropertyAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PropertyAssignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.Role == role && a.Active() {
			out = append(out, copyAssignment(a))
		}
	}
	return out, nil
}

func (m *Memory) ListAssignmentsByProperty(_ context.Context, kind models.PropertyKind, propertyID uuid.UUID) ([]*models.PropertyAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PropertyAssignment
	for _, a := range m.assignments {
		if a.Kind == kind && a.PropertyID == propertyID {
			out = append(out, copyAssignment(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) RevokeAssignment(_ context.Context, assignmentID id.AssignmentID, at time.Time, by id.UserID, template models.ResolutionTemplate, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[assignmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !a.Active() {
		return sentinel.ErrInvalidState
	}
	t := at
	actor := by
	a.RevokedAt = &t
	a.RevokedBy = &actor
	a.RevocationTemplate = template
	a.RevocationReason = reason
	return nil
}

func (m *Memory) AddUserRole(_ context.Context, userID id.UserID, role models.Role, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles, ok := m.userRoles[userID]
	if !ok {
		roles = make(map[models.Role]time.Time)
		m.userRoles[userID] = roles
	}
	if _, exists := roles[role]; !exists {
		roles[role] = at
	}
	return nil
}

func (m *Memory) RemoveUserRole(_ context.Context, userID id.UserID, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userRoles[userID], role)
	return nil
}

func (m *Memory) HasUserRole(_ context.Context, userID id.UserID, role models.Role) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.userRoles[userID][role]
	return ok, nil
}

func (m *Memory) ListUserRoles(_ context.Context, userID id.UserID) ([]models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Role
	for role := range m.userRoles[userID] {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) AddBuildingInterest(_ context.Context, userID id.UserID, buildingID id.BuildingID, autoAdded bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interests, ok := m.interests[userID]
	if !ok {
		interests = make(map[id.BuildingID]models.UserBuildingInterest)
		m.interests[userID] = interests
	}
	if _, exists := interests[buildingID]; !exists {
		interests[buildingID] = models.UserBuildingInterest{
			UserID:     userID,
			BuildingID: buildingID,
			AutoAdded:  autoAdded,
			CreatedAt:  at,
		}
	}
	return nil
}

func (m *Memory) HasBuildingInterest(_ context.Context, userID id.UserID, buildingID id.BuildingID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.interests[userID][buildingID]
	return ok, nil
}

// defaultMemoryTxTimeout is the maximum duration for an in-memory
// transaction.
const defaultMemoryTxTimeout = 5 * time.Second

// MemoryTx serializes mutations against a Memory store with a coarse lock.
// Good enough for tests and local development; postgres deployments use the
// real transaction wrapper in cmd/server.
type MemoryTx struct {
	mu      sync.Mutex
	store   *Memory
	timeout time.Duration
}

// NewMemoryTx wraps a Memory store in a coarse-lock transaction boundary.
func NewMemoryTx(store *Memory) *MemoryTx {
	return &MemoryTx{store: store}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(s Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMemoryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.store)
}
