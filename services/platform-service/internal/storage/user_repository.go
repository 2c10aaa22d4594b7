package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotly/libs/db"
)

type User struct {
	ID           string
	BusinessID   string
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User) error {
	var businessID any
	if user.BusinessID != "" {
		businessID = user.BusinessID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, business_id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, businessID, user.Email, user.Name, user.PasswordHash, user.Role)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	var businessID *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, email, name, password_hash, role
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &businessID, &user.Email, &user.Name, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	if businessID != nil {
		user.BusinessID = *businessID
	}
	return user, nil
}

func (r *UserRepository) AttachBusiness(ctx context.Context, userID, businessID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET business_id = $2
		WHERE id = $1
	`, userID, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
