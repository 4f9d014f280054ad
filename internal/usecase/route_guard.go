package usecase

import "sync"

// GuardState is the route guard's view of authentication.
type GuardState string

const (
	GuardLoading         GuardState = "loading"
	GuardAuthenticated   GuardState = "authenticated"
	GuardUnauthenticated GuardState = "unauthenticated"
)

// LoadingMessage is shown while the session is being restored.
const LoadingMessage = "Loading your personalized dashboard…"

// EntryRoute is where unauthenticated visitors are sent.
const EntryRoute = "/"

// Decision tells the presentation layer what to do with a protected view.
type Decision struct {
	State      GuardState `json:"state"`
	Render     bool       `json:"render"`
	Waiting    bool       `json:"waiting"`
	Message    string     `json:"message,omitempty"`
	RedirectTo string     `json:"redirectTo,omitempty"`
	Replace    bool       `json:"replace,omitempty"`
}

// RouteGuard gates protected views. It leaves loading exactly once, when the
// first restore completes, and then follows logins and logouts. Logins and
// logouts seen while loading are picked up from the restore event.
type RouteGuard struct {
	mu          sync.RWMutex
	state       GuardState
	unsubscribe func()
}

// NewRouteGuard starts in loading and follows the session manager.
func NewRouteGuard(sessions *SessionManager) *RouteGuard {
	g := &RouteGuard{state: GuardLoading}
	g.unsubscribe = sessions.Subscribe(g.onSession)
	return g
}

func (g *RouteGuard) onSession(ev SessionEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == GuardLoading && ev.Kind != SessionRestored {
		return
	}
	switch ev.Kind {
	case SessionRestored:
		if g.state != GuardLoading {
			return
		}
		if ev.Active {
			g.state = GuardAuthenticated
		} else {
			g.state = GuardUnauthenticated
		}
	case SessionLoggedIn:
		g.state = GuardAuthenticated
	case SessionLoggedOut:
		g.state = GuardUnauthenticated
	}
}

// State returns the current guard state.
func (g *RouteGuard) State() GuardState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Evaluate decides how a protected view is handled in the current state.
func (g *RouteGuard) Evaluate() Decision {
	switch s := g.State(); s {
	case GuardLoading:
		return Decision{State: s, Waiting: true, Message: LoadingMessage}
	case GuardUnauthenticated:
		return Decision{State: s, RedirectTo: EntryRoute, Replace: true}
	default:
		return Decision{State: s, Render: true}
	}
}

// Close detaches the guard from the session manager.
func (g *RouteGuard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}
