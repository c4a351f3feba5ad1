package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
	"github.com/and161185/comfy/internal/quota"
)

// quotaCASAttempts bounds the compare-and-set loop of ConsumeAIRequest.
const quotaCASAttempts = 5

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, pwd_hash, salt, role, ai_usage_date, ai_usage_count, created_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, salt, role)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, u.Salt, string(u.Role))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.Salt, &role, &u.AIUsage.Date, &u.AIUsage.Count, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Exists reports whether the user row is present.
func (r *UserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Delete removes the user in one transaction together with any assessments
// stored after the caller's own cleanup.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM assessments WHERE user_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// ConsumeAIRequest reads the stored window, decides with quota.Window and
// writes back only if the row is unchanged since the read.
func (r *UserRepo) ConsumeAIRequest(ctx context.Context, id uuid.UUID, today string, ceiling int) (quota.Window, bool, error) {
	const sel = `SELECT ai_usage_date, ai_usage_count FROM users WHERE id=$1`
	const upd = `
UPDATE users SET ai_usage_date=$2, ai_usage_count=$3
WHERE id=$1 AND ai_usage_date=$4 AND ai_usage_count=$5`

	for attempt := 0; attempt < quotaCASAttempts; attempt++ {
		cur := quota.Window{Ceiling: ceiling}
		if err := r.db.Pool.QueryRow(ctx, sel, id).Scan(&cur.Date, &cur.Count); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return quota.Window{}, false, errs.ErrNotFound
			}
			return quota.Window{}, false, err
		}

		next, ok := cur.TryConsume(today)
		if !ok {
			return cur, false, nil
		}

		tag, err := r.db.Pool.Exec(ctx, upd, id, next.Date, next.Count, cur.Date, cur.Count)
		if err != nil {
			return quota.Window{}, false, err
		}
		if tag.RowsAffected() == 1 {
			return next, true, nil
		}
	}
	return quota.Window{}, false, fmt.Errorf("ai usage update for %s: too much contention", id)
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
