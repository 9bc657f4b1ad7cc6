package queries

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"weatherapi/m/domain"
)

// SQLRepository stores query history through sqlx.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository constructs a SQLRepository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Append(ctx context.Context, q *domain.WeatherQuery) (*domain.WeatherQuery, error) {
	query := r.db.Rebind(`INSERT INTO weather_queries (city, result, user_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	if err := r.db.QueryRowxContext(ctx, query, q.City, q.Result, q.UserID, q.CreatedAt).Scan(&q.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

func (r *SQLRepository) ListForUser(ctx context.Context, userID int64) ([]domain.WeatherQuery, error) {
	rows := []domain.WeatherQuery{}
	query := r.db.Rebind(`SELECT id, city, result, user_id, created_at
		FROM weather_queries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`)

	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rows, nil
}

// ListAll joins each row with its owning user, newest first.
func (r *SQLRepository) ListAll(ctx context.Context) ([]domain.WeatherQueryWithUser, error) {
	rows := []domain.WeatherQueryWithUser{}
	query := `SELECT q.id, q.city, q.result, q.user_id, q.created_at,
			u.id AS "user.id", u.username AS "user.username", u.email AS "user.email", u.role AS "user.role"
		FROM weather_queries q
		JOIN users u ON u.id = q.user_id
		ORDER BY q.created_at DESC, q.id DESC`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rows, nil
}
