package entity

// Role is the workflow role an actor holds
type Role string

const (
	RoleInitiator Role = "INITIATOR"
	RoleManager   Role = "MANAGER"
	RoleHOD       Role = "HOD"
	RoleAGM       Role = "AGM"
	RoleGM        Role = "GM"
	RoleAdmin     Role = "ADMIN"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleInitiator, RoleManager, RoleHOD, RoleAGM, RoleGM, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor is the identity submitting an operation. Authentication happens upstream;
// the engine only inspects role and department.
type Actor struct {
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	Department Department `json:"department,omitempty"`
}

// Is reports whether the actor holds the role
func (a Actor) Is(role Role) bool {
	return a.Role == role
}
