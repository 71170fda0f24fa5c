package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"policygate/internal/policy/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists policies in PostgreSQL. The partial unique index on
// lower(code) WHERE deleted_at IS NULL is the authoritative guard against
// racing creators reusing a code.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed policy store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfCodeAvailable(ctx context.Context, p models.Policy) error {
	query := `
		INSERT INTO policies (id, code, name, description, amount, active, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Code, p.Name, p.Description, p.Amount,
		p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrCodeTaken
		}
		return fmt.Errorf("create policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, selectPolicies+`WHERE id = $1 AND deleted_at IS NULL`, uuid.UUID(policyID))
	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, selectPolicies+`WHERE lower(code) = lower($1) AND deleted_at IS NULL`, code)
	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Policy, error) {
	return s.list(ctx, ``)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, active bool) ([]models.Policy, error) {
	return s.list(ctx, `AND active = $1`, active)
}

func (s *PostgresStore) SearchByAmount(ctx context.Context, min, max *float64) ([]models.Policy, error) {
	where := ``
	args := []any{}
	if min != nil {
		args = append(args, *min)
		where += fmt.Sprintf(`AND amount >= $%d `, len(args))
	}
	if max != nil {
		args = append(args, *max)
		where += fmt.Sprintf(`AND amount <= $%d `, len(args))
	}
	return s.list(ctx, where, args...)
}

// Update replaces the mutable columns, including the soft-delete marker.
// Rows that are already deleted cannot be updated.
func (s *PostgresStore) Update(ctx context.Context, p models.Policy) error {
	query := `
		UPDATE policies
		SET name = $2, description = $3, amount = $4, active = $5, updated_at = $6, deleted_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Name, p.Description, p.Amount, p.Active, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectPolicies = `
	SELECT id, code, name, description, amount, active, created_at, updated_at
	FROM policies
`

func (s *PostgresStore) list(ctx context.Context, filter string, args ...any) ([]models.Policy, error) {
	query := selectPolicies + `WHERE deleted_at IS NULL ` + filter + ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		p     models.Policy
		rawID uuid.UUID
	)
	err := row.Scan(&rawID, &p.Code, &p.Name, &p.Description, &p.Amount,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	p.ID = id.PolicyID(rawID)
	return &p, nil
}
