package domain

type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

// Staff reports whether the role may act on reservations it does not own.
func (r Role) Staff() bool {
	switch r {
	case RoleManager, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Identity is the externally established caller identity passed into
// every service call. The core keeps no ambient session state.
type Identity struct {
	UserID string
	Role   Role
}
