package auth

import "github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"

// Identity is the authenticated caller as asserted by the access token.
type Identity struct {
	UserID    string
	CompanyID string
	Email     string
	Role      user.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == user.RoleCompanyAdmin || i.Role == user.RoleSuperAdmin
}

// CanRead reports whether the caller may read target's records.
func (i Identity) CanRead(target user.Profile) bool {
	return user.CanAccess(i.UserID, i.CompanyID, i.Role, target)
}
