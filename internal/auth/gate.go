package auth

import "strings"

// Decision is the navigation action the gate asks the presentation layer to
// take. The gate itself holds no state and performs no navigation.
type Decision int

const (
	// DecisionNone renders the current route unchanged.
	DecisionNone Decision = iota
	// DecisionPlaceholder renders a placeholder until the first user lookup
	// resolves; redirecting earlier would flash the login screen.
	DecisionPlaceholder
	// DecisionRedirectLogin pushes the login route.
	DecisionRedirectLogin
	// DecisionReplaceHome replaces the current route with home.
	DecisionReplaceHome
)

func (d Decision) String() string {
	switch d {
	case DecisionPlaceholder:
		return "placeholder"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionReplaceHome:
		return "replace_home"
	default:
		return "none"
	}
}

// Gate is the navigation policy over controller state. Excluded routes are
// matched by path prefix.
type Gate struct {
	LoginRoute     string
	HomeRoute      string
	ExcludedRoutes []string
}

func NewGate(excluded ...string) Gate {
	return Gate{LoginRoute: "/login", HomeRoute: "/", ExcludedRoutes: excluded}
}

// Decide maps the controller snapshot and current route to a navigation
// action.
func (g Gate) Decide(s State, currentRoute string) Decision {
	if !s.Initialized || s.Loading {
		return DecisionPlaceholder
	}

	onLogin := currentRoute == g.LoginRoute
	if s.User == nil {
		if onLogin || g.excluded(currentRoute) {
			return DecisionNone
		}
		return DecisionRedirectLogin
	}
	if onLogin {
		return DecisionReplaceHome
	}
	return DecisionNone
}

func (g Gate) excluded(route string) bool {
	for _, prefix := range g.ExcludedRoutes {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}
