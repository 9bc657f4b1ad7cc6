package auth

import (
	"weatherapi/m/domain"
	"weatherapi/m/internal/common"
)

// Authorize allows the call only when actual is exactly the required role.
// There is no hierarchy: ADMIN does not satisfy a USER requirement.
func Authorize(required, actual domain.Role) error {
	if required != actual {
		return common.ErrForbidden
	}
	return nil
}
