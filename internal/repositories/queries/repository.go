package queries

import (
	"context"

	"weatherapi/m/domain"
)

// Repository is the append-only weather query history.
type Repository interface {
	Append(ctx context.Context, q *domain.WeatherQuery) (*domain.WeatherQuery, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.WeatherQuery, error)
	ListAll(ctx context.Context) ([]domain.WeatherQueryWithUser, error)
}
