package user

type Permission string

const (
	// Punches
	PermissionPunchCreate  Permission = "punch.create"
	PermissionPunchViewOwn Permission = "punch.view_own"

	// Reports
	PermissionReportsViewOwn Permission = "reports.view_own"
	PermissionPayrollView    Permission = "payroll.view"
	PermissionPayrollExport  Permission = "payroll.export"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleEmployee: {
		PermissionPunchCreate,
		PermissionPunchViewOwn,
		PermissionReportsViewOwn,
	},
	RoleCompanyAdmin: {
		PermissionPunchCreate,
		PermissionPunchViewOwn,
		PermissionReportsViewOwn,
		PermissionPayrollView,
		PermissionPayrollExport,
	},
	RoleSuperAdmin: {
		// Super admin has all permissions
		PermissionPunchCreate,
		PermissionPunchViewOwn,
		PermissionReportsViewOwn,
		PermissionPayrollView,
		PermissionPayrollExport,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
