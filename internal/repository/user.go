package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/models"
	"github.com/FabienDubin/storypillow/internal/session"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (session.UserRecord, bool, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type userRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewUserRepository(db *sqlx.DB, log *zap.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, email, name, password_hash, role, password_changed_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role, user.PasswordChangedAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

// FindByEmail returns nil, nil when no user matches; callers must not be able
// to distinguish that from a wrong password downstream.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, name, password_hash, role, password_changed_at, created_at, updated_at
	          FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns only what the session resolver needs.
func (r *userRepository) FindByID(ctx context.Context, id string) (session.UserRecord, bool, error) {
	var rec session.UserRecord
	query := `SELECT id, password_changed_at FROM users WHERE id = $1`
	err := r.db.QueryRowxContext(ctx, query, id).Scan(&rec.ID, &rec.PasswordChangedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.UserRecord{}, false, nil
	}
	if err != nil {
		return session.UserRecord{}, false, err
	}
	return rec, true, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, name, password_hash, role, password_changed_at, created_at, updated_at
	          FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users
	          SET email = $2, name = $3, password_hash = $4, role = $5,
	              password_changed_at = $6, updated_at = now()
	          WHERE id = $1
	          RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role, user.PasswordChangedAt,
	).Scan(&user.UpdatedAt)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT id, email, name, password_hash, role, password_changed_at, created_at, updated_at
	          FROM users ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, err
	}
	return count, nil
}
