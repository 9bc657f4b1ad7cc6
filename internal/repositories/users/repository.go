package users

import (
	"context"

	"weatherapi/m/domain"
)

// Repository is the credential store.
type Repository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByEmailOrUsername reports whether either identity is already taken.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	List(ctx context.Context) ([]domain.UserSummary, error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	Delete(ctx context.Context, id int64) error
}
