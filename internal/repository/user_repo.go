package repository

import (
	"context"
	"errors"

	"artfolio/internal/model"
	"artfolio/pkg/otel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, email, full_name, role, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	return otel.Query(ctx, "insert", "users", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.CreatedAt)
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	})
}

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, email, full_name, role, password_hash, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := otel.Query(ctx, "select", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, email).Scan(
			&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt,
		)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
