package models

import "strings"

// UserRole is fixed at registration.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTutor   UserRole = "TUTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// Destinations returned to clients after authentication.
const (
	RouteStudentDashboard = "/student/dashboard"
	RouteTutorDashboard   = "/tutor/dashboard"
	RouteAdminDashboard   = "/admin/dashboard"
	RouteLogin            = "/login"
)

var roleRoutes = map[UserRole]string{
	RoleStudent: RouteStudentDashboard,
	RoleTutor:   RouteTutorDashboard,
	RoleAdmin:   RouteAdminDashboard,
}

// RouteForRole maps every role, including unknown or empty ones, to a destination.
func RouteForRole(role UserRole) string {
	if route, ok := roleRoutes[role]; ok {
		return route
	}
	return RouteLogin
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleRoutes[r]
	return ok
}

// ParseRole normalises user input such as " tutor ".
func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.Valid()
}
