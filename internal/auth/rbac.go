package auth

// Role is the authorization level the navigation guard distinguishes.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)
