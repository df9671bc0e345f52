// CivicVoice | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/civicvoice/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	LinkOAuth(ctx context.Context, id, provider, providerID string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	TouchActivity(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, error)
	Representatives(ctx context.Context) ([]User, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `
	id, email, password_hash, name, phone, district, verified,
	is_representative, role, position, party, rating, balance,
	oauth_provider, oauth_id, last_activity, created_at, updated_at`

func (r *repository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (
			id, email, password_hash, name, phone, district, verified,
			is_representative, role, position, party, balance,
			oauth_provider, oauth_id
		) VALUES (
			:id, :email, :password_hash, :name, :phone, :district, :verified,
			:is_representative, :role, :position, :party, :balance,
			:oauth_provider, :oauth_id
		)
		RETURNING created_at, updated_at`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, u)
	if err != nil {
		if dupErr := duplicateKeyError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("insert user: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	if rows.Next() {
		if err := rows.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
			return fmt.Errorf("scan inserted timestamps: %w", err)
		}
	}

	return rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	query := `SELECT` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	var u User
	query := `SELECT` + userColumns + ` FROM users WHERE phone = $1`

	if err := r.db.GetContext(ctx, &u, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user by phone: %w", err)
	}

	return &u, nil
}

// Update writes the profile fields and reads back updated_at so callers
// cache and return the store's timestamp, not their own.
func (r *repository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET email = :email,
		    name = :name,
		    phone = :phone,
		    district = :district,
		    position = :position,
		    party = :party,
		    updated_at = NOW()
		WHERE id = :id
		RETURNING updated_at`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, u)
	if err != nil {
		if dupErr := duplicateKeyError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("update user: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return core.ErrNotFound
	}

	if err := rows.Scan(&u.UpdatedAt); err != nil {
		return fmt.Errorf("scan updated timestamp: %w", err)
	}

	return rows.Err()
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id string,
	passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return requireRowAffected(result)
}

// LinkOAuth records the provider identity on an existing account.
func (r *repository) LinkOAuth(
	ctx context.Context,
	id, provider, providerID string,
) error {
	query := `
		UPDATE users
		SET oauth_provider = $2, oauth_id = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, provider, providerID)
	if err != nil {
		return fmt.Errorf("link oauth: %w", err)
	}

	return requireRowAffected(result)
}

func (r *repository) SetVerified(
	ctx context.Context,
	id string,
	verified bool,
) error {
	query := `
		UPDATE users
		SET verified = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, verified)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}

	return requireRowAffected(result)
}

func (r *repository) TouchActivity(ctx context.Context, id string) error {
	query := `UPDATE users SET last_activity = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return requireRowAffected(result)
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, error) {
	params.Normalize()

	var (
		conditions []string
		args       []any
	)

	if params.Search != "" {
		args = append(args, "%"+escapeLike(params.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR email ILIKE $%d)", n, n,
		))
	}

	if params.Role != "" {
		args = append(args, params.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}

	query := `SELECT` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, params.PageSize, params.Offset())
	query += fmt.Sprintf(
		" ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		len(args)-1, len(args),
	)

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// Representatives returns representative accounts ordered by rating,
// best first, unrated last.
func (r *repository) Representatives(ctx context.Context) ([]User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE is_representative = TRUE
		ORDER BY rating DESC NULLS LAST, created_at ASC`

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list representatives: %w", err)
	}

	return users, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// duplicateKeyError maps a Postgres unique violation to the matching
// sentinel by constraint name, or returns nil for other errors.
func duplicateKeyError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}

	if strings.Contains(pgErr.ConstraintName, "phone") {
		return core.ErrDuplicatePhone
	}
	return core.ErrDuplicateEmail
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
