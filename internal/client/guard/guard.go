// Package guard decides whether a dashboard view may be shown for the
// current authentication state. It holds no state of its own.
package guard

import "strings"

// View names a dashboard screen.
type View string

const (
	Login         View = "login"
	Register      View = "register"
	Dashboard     View = "dashboard"
	Candidates    View = "candidates"
	Employees     View = "employees"
	Attendance    View = "attendance"
	Leaves        View = "leaves"
	LeaveCalendar View = "leave-calendar"
)

// Views lists every known view, public ones first.
var Views = []View{Login, Register, Dashboard, Candidates, Employees, Attendance, Leaves, LeaveCalendar}

// Decision is the outcome of Check. Redirect is set only when Allow is false.
type Decision struct {
	Allow    bool
	Redirect View
}

// Public reports whether v is reachable without a session.
func Public(v View) bool {
	return v == Login || v == Register
}

// Check gates protected views behind authentication and sends an
// authenticated session away from the login and register views.
func Check(v View, authenticated bool) Decision {
	switch {
	case Public(v) && authenticated:
		return Decision{Redirect: Dashboard}
	case Public(v):
		return Decision{Allow: true}
	case !authenticated:
		return Decision{Redirect: Login}
	default:
		return Decision{Allow: true}
	}
}

// Parse resolves a view name, accepting an optional leading slash.
func Parse(s string) (View, bool) {
	name := View(strings.ToLower(strings.Trim(strings.TrimSpace(s), "/")))
	if name == "" {
		return Dashboard, true
	}
	for _, v := range Views {
		if v == name {
			return v, true
		}
	}
	return "", false
}
