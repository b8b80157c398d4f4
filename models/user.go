package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

// Actor is the authenticated caller taken from the bearer token. Accounts
// live outside this service.
type Actor struct {
	UserID int      `json:"user_id"`
	Role   UserRole `json:"role"`
}

func (a Actor) CanManage() bool {
	return a.Role == RoleAdmin || a.Role == RoleOrganizer
}
