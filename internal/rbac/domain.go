package rbac

// Role names carried in access tokens.
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleReceptionist = "receptionist"
	RoleHousekeeping = "housekeeping"
)
