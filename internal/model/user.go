package model

import "time"

// Roles known to the API. The role is carried in the access token and
// checked by middleware.RequireRole.
const (
	RoleManager   = "MANAGER"
	RoleSeller    = "SELLER"
	RoleAttendant = "ATTENDANT"
)

// Permissions granted per role. middleware.RequirePermission checks these.
const (
	PermSalesCreate     = "sales:create"
	PermSalesRead       = "sales:read"
	PermFinanceRead     = "finance:read"
	PermUsersManage     = "users:manage"
	PermRegisterOperate = "register:operate"
	PermRegisterClose   = "register:close"
	PermInventoryManage = "inventory:manage"
)

// RolePermissions maps each role to the permissions it grants.
var RolePermissions = map[string][]string{
	RoleManager:   {PermFinanceRead, PermUsersManage, PermSalesRead, PermInventoryManage},
	RoleSeller:    {PermSalesCreate, PermSalesRead},
	RoleAttendant: {PermRegisterOperate, PermRegisterClose, PermInventoryManage},
}

// User is a staff account held by repository.UserRepo.
//
// Fields:
//  Name           – display name.
//  Email          – unique, lower-cased login.
//  PasswordHash   – bcrypt hash.
//  Role           – MANAGER, SELLER or ATTENDANT.
//  FailedLogins   – consecutive failed attempts since the last success.
//  LockedUntil    – zero unless the account is locked.
//  LastLoginAt    – zero until the first successful login.
//  SalesCount     – sales credited to this user (seller ranking).
//  SalesTotal     – revenue credited to this user, in cents.
type User struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	FailedLogins int
	LockedUntil  time.Time
	LastLoginAt  time.Time
	SalesCount   int
	SalesTotal   int64
}

// Permissions returns the permissions of the user's role.
func (u User) Permissions() []string {
	perms := RolePermissions[u.Role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// IsLocked reports whether logins are refused at now.
func (u User) IsLocked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}
