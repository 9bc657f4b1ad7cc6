package seed

import (
	"context"

	"weatherapi/m/domain"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/users"
)

// Accounts is the subset of the user service the seeder needs.
type Accounts interface {
	EnsureAccount(ctx context.Context, c users.Credentials, role domain.Role) (bool, error)
	HasAdmin(ctx context.Context) (bool, error)
}

// EnsureAdmin bootstraps the first ADMIN account, since registration only
// creates USER accounts. Missing credentials skip the step.
func EnsureAdmin(ctx context.Context, accounts Accounts, c users.Credentials, logger logging.Logger) error {
	if c.Email == "" || c.Password == "" {
		ok, err := accounts.HasAdmin(ctx)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn(ctx, "no admin account exists and no admin credentials are configured")
		}
		return nil
	}
	created, err := accounts.EnsureAccount(ctx, c, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if created {
		logger.Info(ctx, "seeded admin account", "email", c.Email)
	} else {
		logger.Info(ctx, "admin account already present", "email", c.Email)
	}
	return nil
}
