package user

import "time"

type Role string

const (
	RoleEmployee     Role = "employee"      // Punches and reads own records
	RoleCompanyAdmin Role = "company_admin" // Reads every record of one company
	RoleSuperAdmin   Role = "super_admin"   // Reads every record of every company
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleCompanyAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Profile is the employee record the time clock needs. Accounts and
// credentials live in the identity provider.
type Profile struct {
	ID           string
	CompanyID    string
	FullName     string
	Email        string
	Role         Role
	EmployeeCode *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAccess reports whether a caller with this role and company may read
// the records of target.
func CanAccess(callerID, callerCompanyID string, role Role, target Profile) bool {
	switch {
	case callerID == target.ID:
		return true
	case role == RoleSuperAdmin:
		return true
	case role == RoleCompanyAdmin:
		return callerCompanyID == target.CompanyID
	default:
		return false
	}
}
