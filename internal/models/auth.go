package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignUpRequest creates an identity and its profile.
type SignUpRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	Name      string   `json:"name" validate:"required,max=120"`
	Role      UserRole `json:"role" validate:"required,oneof=STUDENT TUTOR"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// SignInRequest holds credentials for authenticating a user.
type SignInRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshRequest exchanges a refresh token for a new session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// SignOutRequest optionally names the refresh token to revoke.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// Session is returned by sign-up, sign-in and refresh.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	IssuedAt     time.Time   `json:"issued_at"`
	User         SessionUser `json:"user"`
}

// SessionUser describes the authenticated user in session payloads.
type SessionUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
	Home  string   `json:"home"`
}

// SessionContext is the verified caller of a request. It is built once from
// the access token and passed explicitly to every service call.
type SessionContext struct {
	UserID    string
	Role      UserRole
	Email     string
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

// Home is the role-based destination for the session.
func (s SessionContext) Home() string {
	return RouteForRole(s.Role)
}

// Is reports whether the session belongs to userID.
func (s SessionContext) Is(userID string) bool {
	return s.UserID != "" && s.UserID == userID
}

// Current renders the session for the current-session endpoint.
func (s SessionContext) Current() CurrentSession {
	return CurrentSession{
		UserID:    s.UserID,
		Role:      s.Role,
		Email:     s.Email,
		Name:      s.Name,
		Home:      s.Home(),
		ExpiresAt: s.ExpiresAt,
	}
}

// CurrentSession is the public view of a SessionContext.
type CurrentSession struct {
	UserID    string    `json:"user_id"`
	Role      UserRole  `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Home      string    `json:"home"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}

// Session converts verified claims into a SessionContext.
func (c *JWTClaims) Session() SessionContext {
	session := SessionContext{
		UserID:  c.UserID,
		Role:    c.Role,
		Email:   c.Email,
		Name:    c.Name,
		TokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time
	}
	return session
}
