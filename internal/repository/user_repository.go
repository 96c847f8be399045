package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, mobile, password_hash, role, is_premium, is_anonymous)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.Mobile, u.PasswordHash, u.Role, u.IsPremium, u.IsAnonymous,
	).Scan(&u.ID, &u.CreatedAt)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, mobile, password_hash, role, is_premium, premium_until, is_anonymous, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role,
		&u.IsPremium, &u.PremiumUntil, &u.IsAnonymous, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a user by email. Email lookups are case-insensitive.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, mobile, password_hash, role, is_premium, premium_until, is_anonymous, created_at
		 FROM users WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role,
		&u.IsPremium, &u.PremiumUntil, &u.IsAnonymous, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetOrCreateAnonymous deduplicates anonymous participants by email. A
// matching row is reused with its contact details refreshed; a registered
// account with the same email is returned untouched so an anonymous
// submission can attach to it.
func (r *UserRepository) GetOrCreateAnonymous(ctx context.Context, p model.AnonymousProfile) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, mobile, password_hash, role, is_anonymous)
		 VALUES ($1, LOWER($2), $3, '', $4, TRUE)
		 ON CONFLICT (email) DO UPDATE SET
		   name   = CASE WHEN users.is_anonymous THEN EXCLUDED.name ELSE users.name END,
		   mobile = CASE WHEN users.is_anonymous THEN EXCLUDED.mobile ELSE users.mobile END
		 RETURNING id, name, email, mobile, password_hash, role, is_premium, premium_until, is_anonymous, created_at`,
		p.Name, p.Email, p.ActiveMobile, model.RoleUser,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role,
		&u.IsPremium, &u.PremiumUntil, &u.IsAnonymous, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// EmailExists reports whether a registered (non-anonymous) account already
// uses the email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND NOT is_anonymous
		 )`, email,
	).Scan(&exists)
	return exists, err
}

// PromoteAnonymous converts an anonymous row into a registered account when a
// guest later signs up with the same email.
func (r *UserRepository) PromoteAnonymous(ctx context.Context, id int64, name, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, password_hash = $2, is_anonymous = FALSE
		 WHERE id = $3 AND is_anonymous`,
		name, passwordHash, id)
	return err
}

// SetPremium updates a user's subscription flag and expiry.
func (r *UserRepository) SetPremium(ctx context.Context, id int64, premium bool, until *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET is_premium = $1, premium_until = $2 WHERE id = $3`,
		premium, until, id)
	return err
}
