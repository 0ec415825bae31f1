package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	SaveFCMToken(ctx context.Context, id uuid.UUID, token string) error
	// GetFCMTokens returns the non-empty push tokens of the given users.
	GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
	// ListUserIDs returns the broadcast audience: owners of active
	// businesses, or everyone else.
	ListUserIDs(ctx context.Context, forBusiness bool) ([]uuid.UUID, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, phone_number, name, password_hash, is_business, is_staff, created_at, updated_at)
		VALUES (:id, :phone_number, :name, :password_hash, :is_business, :is_staff, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPhoneExists
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE phone_number = $1`, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, updated_at = now() WHERE id = $2`, name, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SaveFCMToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET fcm_token = $1, updated_at = now() WHERE id = $2`, token, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT fcm_token FROM users WHERE id IN (?) AND fcm_token IS NOT NULL AND fcm_token <> ''`,
		userIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var tokens []string
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *repository) ListUserIDs(ctx context.Context, forBusiness bool) ([]uuid.UUID, error) {
	var query string
	if forBusiness {
		query = `
			SELECT u.id FROM users u
			JOIN businesses b ON b.user_id = u.id
			WHERE b.is_active = true
		`
	} else {
		query = `SELECT id FROM users WHERE is_business = false`
	}

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}
