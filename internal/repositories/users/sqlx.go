package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"weatherapi/m/domain"
	"weatherapi/m/internal/common"
)

// SQLRepository stores user accounts through sqlx.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository constructs a SQLRepository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO users (username, email, password, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.Password, string(user.Role), user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, role, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, role, created_at FROM users WHERE email = ?`, email)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.GetContext(ctx, &user, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *SQLRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ? OR username = ?`)
	if err := r.db.GetContext(ctx, &n, query, email, username); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), string(role)); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]domain.UserSummary, error) {
	users := []domain.UserSummary{}
	if err := r.db.SelectContext(ctx, &users, `SELECT id, username, email, role FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *SQLRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET role = ? WHERE id = ?`), string(role), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Delete returns common.ErrUserNotFound when no row matched.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrUserNotFound
	}
	return nil
}
