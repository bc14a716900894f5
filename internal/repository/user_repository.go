package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/attendance-api/internal/models"
)

// UserRepository manages persistence for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user account. The (email, role) pair is unique.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users (id, name, email, role, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns a user account by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, name, email, role, password_hash, created_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmailAndRole returns the account registered under an email for a role.
func (r *UserRepository) FindByEmailAndRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	const query = `SELECT id, name, email, role, password_hash, created_at FROM users WHERE LOWER(email) = LOWER($1) AND role = $2`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email, role); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStudents returns every student account, for faculty enrollment pickers.
func (r *UserRepository) ListStudents(ctx context.Context) ([]models.UserRef, error) {
	const query = `SELECT id, name, email FROM users WHERE role = $1 ORDER BY name`
	var students []models.UserRef
	if err := r.db.SelectContext(ctx, &students, query, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindRefsByIDs returns trimmed user projections for the given ids.
func (r *UserRepository) FindRefsByIDs(ctx context.Context, ids []string) ([]models.UserRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, email FROM users WHERE id = ANY($1)`
	var refs []models.UserRef
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	return refs, nil
}
