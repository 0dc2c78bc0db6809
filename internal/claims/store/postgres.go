package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kvartal/internal/claims/models"
	id "kvartal/pkg/domain"
	"kvartal/pkg/platform/sentinel"
	txcontext "kvartal/pkg/platform/tx"
)

// Schema is the claims subsystem DDL. Integration tests apply it to a fresh
// database; deployments run it through their migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	claim_type TEXT NOT NULL,
	claimed_role TEXT NOT NULL,
	apartment_id UUID,
	parking_spot_id UUID,
	organization_id UUID,
	status TEXT NOT NULL,
	user_comment TEXT NOT NULL DEFAULT '',
	admin_comment TEXT NOT NULL DEFAULT '',
	reviewed_by UUID,
	reviewed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_user ON claims (user_id);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims (status);
-- One outstanding submission per user and property; concurrent inserts race
-- past the in-transaction pending check under read committed. Exactly one of
-- the three property columns is set, and NULLs never compare equal, so the
-- index coalesces them into the single property id.
CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_pending
	ON claims (user_id, COALESCE(apartment_id, parking_spot_id, organization_id))
	WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS claim_documents (
	id UUID PRIMARY KEY,
	claim_id UUID NOT NULL REFERENCES claims (id) ON DELETE CASCADE,
	document_type TEXT NOT NULL,
	file_url TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	scheduled_for_deletion TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claim_documents_claim ON claim_documents (claim_id);

CREATE TABLE IF NOT EXISTS claim_history (
	id UUID PRIMARY KEY,
	claim_id UUID NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	template TEXT NOT NULL DEFAULT '',
	resolution_text TEXT NOT NULL DEFAULT '',
	changed_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claim_history_claim ON claim_history (claim_id, created_at DESC);

CREATE TABLE IF NOT EXISTS apartment_assignments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	property_id UUID NOT NULL,
	role TEXT NOT NULL,
	revoked_at TIMESTAMPTZ,
	revoked_by UUID,
	revocation_template TEXT NOT NULL DEFAULT '',
	revocation_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_apartment_assignments_user ON apartment_assignments (user_id);
CREATE INDEX IF NOT EXISTS idx_apartment_assignments_property ON apartment_assignments (property_id);

CREATE TABLE IF NOT EXISTS parking_assignments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	property_id UUID NOT NULL,
	role TEXT NOT NULL,
	revoked_at TIMESTAMPTZ,
	revoked_by UUID,
	revocation_template TEXT NOT NULL DEFAULT '',
	revocation_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parking_assignments_user ON parking_assignments (user_id);
CREATE INDEX IF NOT EXISTS idx_parking_assignments_property ON parking_assignments (property_id);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id UUID NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS user_building_interests (
	user_id UUID NOT NULL,
	building_id UUID NOT NULL,
	auto_added BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, building_id)
);
`

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the claims subsystem in PostgreSQL.
type Postgres struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a store over a database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresTx constructs a store bound to an open transaction. Used by the
// RunInTx wrapper in cmd/server.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{tx: tx}
}

// execer prefers, in order: the bound transaction, a transaction carried in
// context, the raw handle.
func (s *Postgres) execer(ctx context.Context) dbtx {
	if s.tx != nil {
		return s.tx
	}
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func assignmentTable(kind models.PropertyKind) (string, error) {
	switch kind {
	case models.PropertyKindApartment:
		return "apartment_assignments", nil
	case models.PropertyKindParking:
		return "parking_assignments", nil
	}
	return "", fmt.Errorf("no assignment table for property kind %q", kind)
}

// kindForRole maps a role name to the assignment table that can hold it.
func kindForRole(role models.Role) (models.PropertyKind, bool) {
	switch role {
	case models.RoleApartmentOwner, models.RoleApartmentResident:
		return models.PropertyKindApartment, true
	case models.RoleParkingOwner, models.RoleParkingResident:
		return models.PropertyKindParking, true
	}
	return "", false
}

func propertyRefColumns(ref models.PropertyRef) (apartment, parking, organization uuid.NullUUID) {
	switch ref.Kind() {
	case models.PropertyKindApartment:
		apartment = uuid.NullUUID{UUID: ref.ID(), Valid: true}
	case models.PropertyKindParking:
		parking = uuid.NullUUID{UUID: ref.ID(), Valid: true}
	case models.PropertyKindCommercial:
		organization = uuid.NullUUID{UUID: ref.ID(), Valid: true}
	}
	return apartment, parking, organization
}

func propertyRefFromColumns(apartment, parking, organization uuid.NullUUID) (models.PropertyRef, error) {
	switch {
	case apartment.Valid:
		return models.NewApartmentRef(id.ApartmentID(apartment.UUID)), nil
	case parking.Valid:
		return models.NewParkingRef(id.ParkingSpotID(parking.UUID)), nil
	case organization.Valid:
		return models.NewCommercialRef(id.OrganizationID(organization.UUID)), nil
	}
	return models.PropertyRef{}, errors.New("claim row has no property reference")
}

const claimColumns = `id, user_id, claim_type, claimed_role, apartment_id, parking_spot_id, organization_id,
	status, user_comment, admin_comment, reviewed_by, reviewed_at, created_at, updated_at`

func scanClaim(row interface{ Scan(dest ...any) error }) (*models.Claim, error) {
	var (
		c               models.Claim
		claimID, userID uuid.UUID
		apt, park, org  uuid.NullUUID
		reviewedBy      uuid.NullUUID
		reviewedAt      sql.NullTime
	)
	err := row.Scan(&claimID, &userID, &c.Type, &c.ClaimedRole, &apt, &park, &org,
		&c.Status, &c.UserComment, &c.AdminComment, &reviewedBy, &reviewedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID = id.ClaimID(claimID)
	c.UserID = id.UserID(userID)
	c.Property, err = propertyRefFromColumns(apt, park, org)
	if err != nil {
		return nil, err
	}
	if reviewedBy.Valid {
		rb := id.UserID(reviewedBy.UUID)
		c.ReviewedBy = &rb
	}
	if reviewedAt.Valid {
		ra := reviewedAt.Time
		c.ReviewedAt = &ra
	}
	return &c, nil
}

func (s *Postgres) CreateClaim(ctx context.Context, claim *models.Claim) error {
	apt, park, org := propertyRefColumns(claim.Property)
	var reviewedBy uuid.NullUUID
	if claim.ReviewedBy != nil {
		reviewedBy = uuid.NullUUID{UUID: uuid.UUID(*claim.ReviewedBy), Valid: true}
	}
	var reviewedAt sql.NullTime
	if claim.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *claim.ReviewedAt, Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(claim.ID), uuid.UUID(claim.UserID), claim.Type, claim.ClaimedRole,
		apt, park, org, claim.Status, claim.UserComment, claim.AdminComment,
		reviewedBy, reviewedAt, claim.CreatedAt, claim.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Postgres) GetClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, uuid.UUID(claimID))
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) UpdateClaim(ctx context.Context, claim *models.Claim) error {
	var reviewedBy uuid.NullUUID
	if claim.ReviewedBy != nil {
		reviewedBy = uuid.NullUUID{UUID: uuid.UUID(*claim.ReviewedBy), Valid: true}
	}
	var reviewedAt sql.NullTime
	if claim.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *claim.ReviewedAt, Valid: true}
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE claims
		SET status = $2, admin_comment = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(claim.ID), claim.Status, claim.AdminComment, reviewedBy, reviewedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) DeleteClaim(ctx context.Context, claimID id.ClaimID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) FindPendingClaim(ctx context.Context, userID id.UserID, property models.PropertyRef) (*models.Claim, error) {
	apt, park, org := propertyRefColumns(property)
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE user_id = $1 AND status = $2
		  AND apartment_id IS NOT DISTINCT FROM $3
		  AND parking_spot_id IS NOT DISTINCT FROM $4
		  AND organization_id IS NOT DISTINCT FROM $5
		LIMIT 1`,
		uuid.UUID(userID), models.StatusPending, apt, park, org,
	)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find pending claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) listClaims(ctx context.Context, query string, args ...any) ([]*models.Claim, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, claim)
	}
	return out, rows.Err()
}

func (s *Postgres) ListClaimsByUser(ctx context.Context, userID id.UserID) ([]*models.Claim, error) {
	claims, err := s.listClaims(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE user_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list claims by user: %w", err)
	}
	return claims, nil
}

func (s *Postgres) ListClaimsByProperty(ctx context.Context, property models.PropertyRef) ([]*models.Claim, error) {
	apt, park, org := propertyRefColumns(property)
	claims, err := s.listClaims(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE apartment_id IS NOT DISTINCT FROM $1
		  AND parking_spot_id IS NOT DISTINCT FROM $2
		  AND organization_id IS NOT DISTINCT FROM $3
		ORDER BY created_at DESC`,
		apt, park, org)
	if err != nil {
		return nil, fmt.Errorf("list claims by property: %w", err)
	}
	return claims, nil
}

func (s *Postgres) ListPendingResidentClaims(ctx context.Context) ([]*models.Claim, error) {
	claims, err := s.listClaims(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE status = $1 AND claimed_role IN ($2, $3)
		ORDER BY created_at DESC`,
		models.StatusPending, models.RoleApartmentResident, models.RoleParkingResident)
	if err != nil {
		return nil, fmt.Errorf("list pending resident claims: %w", err)
	}
	return claims, nil
}

func (s *Postgres) ListClaims(ctx context.Context, filter ClaimFilter) ([]*models.Claim, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	where := "TRUE"
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where += fmt.Sprintf(" AND claim_type = $%d", len(args))
	}

	var total int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	claims, err := s.listClaims(ctx,
		fmt.Sprintf(`SELECT `+claimColumns+` FROM claims WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	return claims, total, nil
}

func (s *Postgres) CountClaimsByStatus(ctx context.Context) (map[models.ClaimStatus]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM claims GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count claims by status: %w", err)
	}
	defer rows.Close()
	counts := make(map[models.ClaimStatus]int)
	for rows.Next() {
		var status models.ClaimStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const documentColumns = `id, claim_id, document_type, file_url, file_name, file_size, mime_type,
	thumbnail_url, scheduled_for_deletion, created_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (*models.ClaimDocument, error) {
	var (
		d                models.ClaimDocument
		docID, claimID   uuid.UUID
		scheduled        sql.NullTime
	)
	err := row.Scan(&docID, &claimID, &d.Type, &d.FileURL, &d.FileName, &d.FileSize,
		&d.MimeType, &d.ThumbnailURL, &scheduled, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(docID)
	d.ClaimID = id.ClaimID(claimID)
	if scheduled.Valid {
		t := scheduled.Time
		d.ScheduledForDeletion = &t
	}
	return &d, nil
}

func (s *Postgres) AddDocument(ctx context.Context, doc *models.ClaimDocument) error {
	var scheduled sql.NullTime
	if doc.ScheduledForDeletion != nil {
		scheduled = sql.NullTime{Time: *doc.ScheduledForDeletion, Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO claim_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(doc.ID), uuid.UUID(doc.ClaimID), doc.Type, doc.FileURL, doc.FileName,
		doc.FileSize, doc.MimeType, doc.ThumbnailURL, scheduled, doc.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, documentID id.DocumentID) (*models.ClaimDocument, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM claim_documents WHERE id = $1`, uuid.UUID(documentID))
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *Postgres) DeleteDocument(ctx context.Context, documentID id.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM claim_documents WHERE id = $1`, uuid.UUID(documentID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) ListDocuments(ctx context.Context, claimID id.ClaimID) ([]*models.ClaimDocument, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM claim_documents WHERE claim_id = $1 ORDER BY created_at`,
		uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []*models.ClaimDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Postgres) CountDocuments(ctx context.Context, claimID id.ClaimID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_documents WHERE claim_id = $1`, uuid.UUID(claimID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *Postgres) ScheduleDocumentsForDeletion(ctx context.Context, claimID id.ClaimID, at time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE claim_documents SET scheduled_for_deletion = $2 WHERE claim_id = $1`,
		uuid.UUID(claimID), at)
	if err != nil {
		return fmt.Errorf("schedule documents for deletion: %w", err)
	}
	return nil
}

func (s *Postgres) DocumentsDueForDeletion(ctx context.Context, before time.Time) ([]*models.ClaimDocument, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+` FROM claim_documents
		WHERE scheduled_for_deletion IS NOT NULL AND scheduled_for_deletion <= $1
		ORDER BY scheduled_for_deletion`,
		before)
	if err != nil {
		return nil, fmt.Errorf("documents due for deletion: %w", err)
	}
	defer rows.Close()
	var out []*models.ClaimDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteDocumentsByClaim(ctx context.Context, claimID id.ClaimID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM claim_documents WHERE claim_id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete documents by claim: %w", err)
	}
	return nil
}

func (s *Postgres) AppendHistory(ctx context.Context, entry *models.ClaimHistoryEntry) error {
	entryID := entry.ID
	if entryID == uuid.Nil {
		entryID = uuid.New()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO claim_history (id, claim_id, from_status, to_status, template, resolution_text, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entryID, uuid.UUID(entry.ClaimID), entry.FromStatus, entry.ToStatus,
		entry.Template, entry.ResolutionText, uuid.UUID(entry.ChangedBy), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Postgres) ListHistory(ctx context.Context, claimID id.ClaimID) ([]*models.ClaimHistoryEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, claim_id, from_status, to_status, template, resolution_text, changed_by, created_at
		FROM claim_history WHERE claim_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	var out []*models.ClaimHistoryEntry
	for rows.Next() {
		var (
			e              models.ClaimHistoryEntry
			cID, changedBy uuid.UUID
		)
		if err := rows.Scan(&e.ID, &cID, &e.FromStatus, &e.ToStatus, &e.Template, &e.ResolutionText, &changedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ClaimID = id.ClaimID(cID)
		e.ChangedBy = id.UserID(changedBy)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteHistoryByClaim(ctx context.Context, claimID id.ClaimID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM claim_history WHERE claim_id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete history by claim: %w", err)
	}
	return nil
}

const assignmentColumns = `id, user_id, property_id, role, revoked_at, revoked_by, revocation_template, revocation_reason, created_at`

func scanAssignment(row interface{ Scan(dest ...any) error }, kind models.PropertyKind) (*models.PropertyAssignment, error) {
	var (
		a                   models.PropertyAssignment
		aID, userID, propID uuid.UUID
		revokedAt           sql.NullTime
		revokedBy           uuid.NullUUID
	)
	err := row.Scan(&aID, &userID, &propID, &a.Role, &revokedAt, &revokedBy, &a.RevocationTemplate, &a.RevocationReason, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AssignmentID(aID)
	a.UserID = id.UserID(userID)
	a.PropertyID = propID
	a.Kind = kind
	if revokedAt.Valid {
		t := revokedAt.Time
		a.RevokedAt = &t
	}
	if revokedBy.Valid {
		rb := id.UserID(revokedBy.UUID)
		a.RevokedBy = &rb
	}
	return &a, nil
}

func (s *Postgres) CreateAssignment(ctx context.Context, assignment *models.PropertyAssignment) error {
	table, err := assignmentTable(assignment.Kind)
	if err != nil {
		return err
	}
	var revokedAt sql.NullTime
	if assignment.RevokedAt != nil {
		revokedAt = sql.NullTime{Time: *assignment.RevokedAt, Valid: true}
	}
	var revokedBy uuid.NullUUID
	if assignment.RevokedBy != nil {
		revokedBy = uuid.NullUUID{UUID: uuid.UUID(*assignment.RevokedBy), Valid: true}
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO `+table+` (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(assignment.ID), uuid.UUID(assignment.UserID), assignment.PropertyID, assignment.Role,
		revokedAt, revokedBy, assignment.RevocationTemplate, assignment.RevocationReason, assignment.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *Postgres) FindActiveAssignment(ctx context.Context, userID id.UserID, kind models.PropertyKind, propertyID uuid.UUID) (*models.PropertyAssignment, error) {
	table, err := assignmentTable(kind)
	if err != nil {
		return nil, err
	}
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM `+table+`
		WHERE user_id = $1 AND property_id = $2 AND revoked_at IS NULL
		LIMIT 1`,
		uuid.UUID(userID), propertyID)
	a, err := scanAssignment(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active assignment: %w", err)
	}
	return a, nil
}

func (s *Postgres) listAssignments(ctx context.Context, kind models.PropertyKind, query string, args ...any) ([]*models.PropertyAssignment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.PropertyAssignment
	for rows.Next() {
		a, err := scanAssignment(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) ListActiveAssignmentsByUser(ctx context.Context, userID id.UserID) ([]*models.PropertyAssignment, error) {
	var out []*models.PropertyAssignment
	for _, kind := range []models.PropertyKind{models.PropertyKindApartment, models.PropertyKindParking} {
		table, err := assignmentTable(kind)
		if err != nil {
			return nil, err
		}
		part, err := s.listAssignments(ctx, kind, `
			SELECT `+assignmentColumns+` FROM `+table+`
			WHERE user_id = $1 AND revoked_at IS NULL
			ORDER BY created_at`,
			uuid.UUID(userID))
		if err != nil {
			return nil, fmt.Errorf("list active assignments: %w", err)
		}
		out = append(out, part...)
	}
	return out, nil
}

func (s *Postgres) ListActiveAssignmentsByRole(ctx context.Context, userID id.UserID, role models.Role) ([]*models.PropertyAssignment, error) {
	kind, ok := kindForRole(role)
	if !ok {
		return nil, nil
	}
	table, err := assignmentTable(kind)
	if err != nil {
		return nil, err
	}
	out, err := s.listAssignments(ctx, kind, `
		SELECT `+assignmentColumns+` FROM `+table+`
		WHERE user_id = $1 AND role = $2 AND revoked_at IS NULL`,
		uuid.UUID(userID), role)
	if err != nil {
		return nil, fmt.Errorf("list active assignments by role: %w", err)
	}
	return out, nil
}

func (s *Postgres) ListAssignmentsByProperty(ctx context.Context, kind models.PropertyKind, propertyID uuid.UUID) ([]*models.PropertyAssignment, error) {
	table, err := assignmentTable(kind)
	if err != nil {
		return nil, err
	}
	out, err := s.listAssignments(ctx, kind, `
		SELECT `+assignmentColumns+` FROM `+table+`
		WHERE property_id = $1
		ORDER BY created_at`,
		propertyID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by property: %w", err)
	}
	return out, nil
}

func (s *Postgres) RevokeAssignment(ctx context.Context, assignmentID id.AssignmentID, at time.Time, by id.UserID, template models.ResolutionTemplate, reason string) error {
	for _, table := range []string{"apartment_assignments", "parking_assignments"} {
		res, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE `+table+`
			SET revoked_at = $2, revoked_by = $3, revocation_template = $4, revocation_reason = $5
			WHERE id = $1 AND revoked_at IS NULL`,
			uuid.UUID(assignmentID), at, uuid.UUID(by), template, reason)
		if err != nil {
			return fmt.Errorf("revoke assignment: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		// Row may exist but already be revoked.
		var exists bool
		err = s.execer(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`,
			uuid.UUID(assignmentID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("revoke assignment: %w", err)
		}
		if exists {
			return sentinel.ErrInvalidState
		}
	}
	return sentinel.ErrNotFound
}

func (s *Postgres) AddUserRole(ctx context.Context, userID id.UserID, role models.Role, at time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role) DO NOTHING`,
		uuid.UUID(userID), role, at)
	if err != nil {
		return fmt.Errorf("add user role: %w", err)
	}
	return nil
}

func (s *Postgres) RemoveUserRole(ctx context.Context, userID id.UserID, role models.Role) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
		uuid.UUID(userID), role)
	if err != nil {
		return fmt.Errorf("remove user role: %w", err)
	}
	return nil
}

func (s *Postgres) HasUserRole(ctx context.Context, userID id.UserID, role models.Role) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		uuid.UUID(userID), role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has user role: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListUserRoles(ctx context.Context, userID id.UserID) ([]models.Role, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()
	var out []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Postgres) AddBuildingInterest(ctx context.Context, userID id.UserID, buildingID id.BuildingID, autoAdded bool, at time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO user_building_interests (user_id, building_id, auto_added, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, building_id) DO NOTHING`,
		uuid.UUID(userID), uuid.UUID(buildingID), autoAdded, at)
	if err != nil {
		return fmt.Errorf("add building interest: %w", err)
	}
	return nil
}

func (s *Postgres) HasBuildingInterest(ctx context.Context, userID id.UserID, buildingID id.BuildingID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_building_interests WHERE user_id = $1 AND building_id = $2)`,
		uuid.UUID(userID), uuid.UUID(buildingID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has building interest: %w", err)
	}
	return exists, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
