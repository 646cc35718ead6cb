package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleMarketer Role = "marketer"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionAdmin Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMarketer:
		return action == ActionRead || action == ActionWrite
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize maps unknown role strings to viewer.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleMarketer, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
