package navigation

import "github.com/studyhall/shell/internal/auth"

// Event bus topics published by this package.
const (
	EventNavigationAllowed    = "navigation.allowed"
	EventNavigationRedirected = "navigation.redirected"
	EventCredentialPurged     = "credential.purged"
	EventRoutesReloaded       = "routes.reloaded"
	EventRoutesReloadFailed   = "routes.reload_failed"
)

// NavigationEvent is the single argument of the navigation.* and
// credential.purged events.
type NavigationEvent struct {
	To       Location
	From     Location
	Decision Decision
	Subject  string
	// Role is empty for anonymous visitors.
	Role auth.Role
}

// ReloadEvent is the single argument of the routes.* events.
type ReloadEvent struct {
	Path   string
	Routes int
	Err    error
}
