package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"policygate/internal/enrollment/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists enrollments in PostgreSQL. The partial unique
// index on (user_id, policy_id) WHERE status = 'Pending' is the
// authoritative guard against racing creators; the INSERT ... WHERE NOT
// EXISTS covers blocking on resolved rows.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed enrollment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfAbsent inserts the enrollment unless a row for the same (user,
// policy) with a blocking status exists. New rows are always Pending, so
// the Pending partial unique index catches two creators racing past the
// NOT EXISTS check; that violation maps to the same conflict.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, e models.Enrollment, blocking []models.Status) error {
	statuses := make([]string, 0, len(blocking))
	for _, st := range blocking {
		statuses = append(statuses, st.String())
	}

	query := `
		INSERT INTO policy_enrollments (id, user_id, policy_id, status, requested_at, approved_at, rejected_at, admin_remarks)
		SELECT $1, $2, $3, $4, $5, NULL, NULL, ''
		WHERE NOT EXISTS (
			SELECT 1 FROM policy_enrollments
			WHERE user_id = $2 AND policy_id = $3 AND status = ANY($6)
		)
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.PolicyID),
		e.Status.String(), e.RequestedAt, pq.Array(statuses),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrAlreadyEnrolled
	}
	return nil
}

// FindByID returns the raw enrollment record.
func (s *PostgresStore) FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, policy_id, status, requested_at, approved_at, rejected_at, admin_remarks
		FROM policy_enrollments
		WHERE id = $1
	`
	var (
		e           models.Enrollment
		rawID       uuid.UUID
		rawUserID   uuid.UUID
		rawPolicyID uuid.UUID
		status      string
		approvedAt  sql.NullTime
		rejectedAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(enrollmentID)).Scan(
		&rawID, &rawUserID, &rawPolicyID, &status, &e.RequestedAt,
		&approvedAt, &rejectedAt, &e.AdminRemarks,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	e.ID = id.EnrollmentID(rawID)
	e.UserID = id.UserID(rawUserID)
	e.PolicyID = id.PolicyID(rawPolicyID)
	e.Status = models.Status(status)
	if approvedAt.Valid {
		e.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		e.RejectedAt = &rejectedAt.Time
	}
	return &e, nil
}

// FindViewByID returns the denormalized view of one enrollment.
func (s *PostgresStore) FindViewByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.View, error) {
	views, err := s.listViews(ctx, `WHERE e.id = $1`, uuid.UUID(enrollmentID))
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &views[0], nil
}

// Resolve transitions the enrollment to the target status if and only if it
// is currently Pending. The conditional UPDATE is atomic: of two racing
// resolutions exactly one matches the Pending row, the other affects zero
// rows and gets ErrNotPending.
func (s *PostgresStore) Resolve(ctx context.Context, enrollmentID id.EnrollmentID, to models.Status, now time.Time, remarks string) error {
	var stampColumn string
	switch to {
	case models.StatusApproved:
		stampColumn = "approved_at"
	case models.StatusRejected:
		stampColumn = "rejected_at"
	default:
		return ErrNotPending
	}

	query := fmt.Sprintf(`
		UPDATE policy_enrollments
		SET status = $2, %s = $3, admin_remarks = $4
		WHERE id = $1 AND status = 'Pending'
	`, stampColumn)

	res, err := s.db.ExecContext(ctx, query, uuid.UUID(enrollmentID), to.String(), now, remarks)
	if err != nil {
		return fmt.Errorf("resolve enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// ListByUser returns all of a user's enrollments, newest-first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.View, error) {
	return s.listViews(ctx, `WHERE e.user_id = $1`, uuid.UUID(userID))
}

// ListByStatus returns all enrollments in the given status, newest-first.
func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]models.View, error) {
	return s.listViews(ctx, `WHERE e.status = $1`, status.String())
}

// ListAll returns every enrollment, newest-first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.View, error) {
	return s.listViews(ctx, ``)
}

// listViews joins enrollments with their subject and policy. The policy
// join ignores the soft-delete marker so history stays readable after a
// policy is deleted.
func (s *PostgresStore) listViews(ctx context.Context, where string, args ...any) ([]models.View, error) {
	query := `
		SELECT e.id, e.user_id, u.name, u.email,
		       e.policy_id, p.code, p.name, p.amount,
		       e.status, e.requested_at, e.approved_at, e.rejected_at, e.admin_remarks
		FROM policy_enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN policies p ON p.id = e.policy_id
		` + where + `
		ORDER BY e.requested_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []models.View
	for rows.Next() {
		var (
			v           models.View
			rawID       uuid.UUID
			rawUserID   uuid.UUID
			rawPolicyID uuid.UUID
			status      string
			approvedAt  sql.NullTime
			rejectedAt  sql.NullTime
		)
		err := rows.Scan(&rawID, &rawUserID, &v.UserName, &v.UserEmail,
			&rawPolicyID, &v.PolicyCode, &v.PolicyName, &v.PolicyAmount,
			&status, &v.RequestedAt, &approvedAt, &rejectedAt, &v.AdminRemarks)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		v.ID = id.EnrollmentID(rawID)
		v.UserID = id.UserID(rawUserID)
		v.PolicyID = id.PolicyID(rawPolicyID)
		v.Status = models.Status(status)
		if approvedAt.Valid {
			v.ApprovedAt = &approvedAt.Time
		}
		if rejectedAt.Valid {
			v.RejectedAt = &rejectedAt.Time
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
