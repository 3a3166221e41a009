package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermScheduleRead  Permission = "schedule:read"
	PermScheduleWrite Permission = "schedule:write"
	PermOutputRead    Permission = "output:read"
	PermOutputOperate Permission = "output:operate"
	PermInputRead     Permission = "input:read"
	PermUserManage    Permission = "user:manage"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model;
// no code may compare roles by ordering.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermScheduleRead,
		PermOutputRead,
		PermInputRead,
	},
	RoleManager: {
		PermScheduleRead,
		PermScheduleWrite,
		PermOutputRead,
		PermOutputOperate,
		PermInputRead,
	},
	RoleOwner: {
		PermScheduleRead,
		PermScheduleWrite,
		PermOutputRead,
		PermOutputOperate,
		PermInputRead,
		PermUserManage,
	},
}

// HasPermission returns true if the given role has the specified permission.
// Unknown roles have no permissions.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
