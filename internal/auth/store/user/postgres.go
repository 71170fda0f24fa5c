package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"policygate/internal/auth/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists users in PostgreSQL. The unique indexes on
// lower(email) and (country_code, phone_number) are the authoritative guard
// against racing registrations; violations surface as the store's conflict
// errors.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfAvailable(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, country_code, phone_number, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Name, u.Email, u.PasswordHash, u.Role.String(),
		nullable(u.CountryCode), nullable(u.PhoneNumber), u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err, "create user")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) FindByPhone(ctx context.Context, countryCode, phoneNumber string) (*models.User, error) {
	return s.findOne(ctx, `WHERE country_code = $1 AND phone_number = $2`, countryCode, phoneNumber)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, selectUsers+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, role = $4, country_code = $5, phone_number = $6, active = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Name, u.Email, u.Role.String(),
		nullable(u.CountryCode), nullable(u.PhoneNumber), u.Active, u.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err, "update user")
	}
	return requireRowAffected(res)
}

func (s *PostgresStore) Deactivate(ctx context.Context, userID id.UserID, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET active = false, updated_at = $2 WHERE id = $1`,
		uuid.UUID(userID), now,
	)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return requireRowAffected(res)
}

const selectUsers = `
	SELECT id, name, email, password_hash, role, country_code, phone_number, active, created_at, updated_at
	FROM users
`

func (s *PostgresStore) findOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, selectUsers+where, args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		rawID       uuid.UUID
		role        string
		countryCode sql.NullString
		phoneNumber sql.NullString
	)
	err := row.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&countryCode, &phoneNumber, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Role = id.Role(role)
	u.CountryCode = countryCode.String
	u.PhoneNumber = phoneNumber.String
	return &u, nil
}

// mapUniqueViolation translates PostgreSQL unique-constraint failures into
// the store's conflict errors so racing writers that pass the service
// pre-check still observe the same Conflict outcome.
func mapUniqueViolation(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "users_email_lower_idx":
			return ErrEmailTaken
		case "users_phone_pair_idx":
			return ErrPhoneTaken
		default:
			return sentinel.ErrConflict
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
