package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/internal/repository"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type authUserRepository interface {
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type authProfileRepository interface {
	EnsureFromUser(ctx context.Context, user *models.User) (*models.Profile, error)
}

type tokenDenylist interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
}

// AuthService provides the identity and session use cases.
type AuthService struct {
	repo      authUserRepository
	profiles  authProfileRepository
	denylist  tokenDenylist
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. A nil denylist disables
// access token revocation.
func NewAuthService(repo authUserRepository, profiles authProfileRepository, denylist tokenDenylist, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		profiles:  profiles,
		denylist:  denylist,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SignUp registers a student or tutor, creating the identity and its profile
// together, and signs the new user in.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Session, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if role, ok := models.ParseRole(string(req.Role)); ok {
		req.Role = role
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid sign-up payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.Name,
		Role:         req.Role,
		Active:       true,
	}
	profile := &models.Profile{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := s.repo.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "email already registered")
		}
		return nil, appErrors.Store(err, "failed to create account")
	}

	s.audit(ctx, user.ID, models.AuditActionSignUp, `{"role":"`+string(user.Role)+`"}`, req.IP, req.UserAgent)
	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return s.issueSession(ctx, user, req.IP, req.UserAgent)
}

// SignIn authenticates with email and password. A missing profile row is
// recreated from the identity.
func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest) (*models.Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid sign-in payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "invalid email or password")
		}
		return nil, appErrors.Store(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuth, "invalid email or password")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrAuth, "account is inactive")
	}

	if s.profiles != nil {
		if _, err := s.profiles.EnsureFromUser(ctx, user); err != nil {
			return nil, appErrors.Store(err, "failed to reconcile profile")
		}
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.audit(ctx, user.ID, models.AuditActionLogin, `{"status":"success"}`, req.IP, req.UserAgent)

	return s.issueSession(ctx, user, req.IP, req.UserAgent)
}

// Refresh exchanges a refresh token for a new session and retires the old token.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid refresh payload")
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "refresh token not found")
		}
		return nil, appErrors.Store(err, "failed to fetch refresh token")
	}

	if !stored.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrAuth, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "associated user no longer exists")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrAuth, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "refresh token is expired or revoked")
		}
		return nil, appErrors.Store(err, "failed to rotate refresh token")
	}

	return s.issueSession(ctx, user, req.IP, req.UserAgent)
}

// SignOut ends the caller's session. The named refresh token, or every
// refresh token of the user when none is given, is revoked and the access
// token is denylisted until it expires. Signing out twice succeeds.
func (s *AuthService) SignOut(ctx context.Context, session models.SessionContext, req models.SignOutRequest) error {
	if session.UserID == "" {
		return appErrors.Clone(appErrors.ErrAuth, "not signed in")
	}

	if req.RefreshToken != "" {
		stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return appErrors.Store(err, "failed to load refresh token")
		case stored.UserID != session.UserID:
			return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
		default:
			if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Store(err, "failed to revoke refresh token")
			}
		}
	} else if err := s.repo.RevokeUserRefreshTokens(ctx, session.UserID); err != nil {
		return appErrors.Store(err, "failed to revoke refresh tokens")
	}

	if s.denylist != nil && session.TokenID != "" {
		ttl := session.ExpiresAt.Sub(s.now())
		if err := s.denylist.RevokeToken(ctx, session.TokenID, ttl); err != nil {
			s.logger.Warn("failed to denylist access token", zap.String("user_id", session.UserID), zap.Error(err))
		}
	}

	s.audit(ctx, session.UserID, models.AuditActionLogout, `{"status":"logout"}`, req.IP, req.UserAgent)
	return nil
}

// CurrentSession returns the public view of a verified session after
// checking that its user still exists.
func (s *AuthService) CurrentSession(ctx context.Context, session models.SessionContext) (*models.CurrentSession, error) {
	if session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "not signed in")
	}
	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "account no longer exists")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	current := session.Current()
	current.Name = user.FullName
	current.Email = user.Email
	return &current, nil
}

// ValidateSession verifies an access token and rejects signed-out tokens.
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (models.SessionContext, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return models.SessionContext{}, err
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return models.SessionContext{}, appErrors.Store(err, "failed to check session")
		}
		if revoked {
			return models.SessionContext{}, appErrors.Clone(appErrors.ErrAuth, "session has been signed out")
		}
	}
	if s.denylist != nil {
		revoked, err := s.denylist.IsUserRevoked(ctx, claims.UserID)
		if err != nil {
			return models.SessionContext{}, appErrors.Store(err, "failed to check session")
		}
		if revoked {
			return models.SessionContext{}, appErrors.Clone(appErrors.ErrAuth, "account no longer exists")
		}
	}
	return claims.Session(), nil
}

// RevokeUserSessions invalidates every access token already issued to a user.
// Tokens are stateless, so the user id stays denylisted for one access token
// lifetime. Refresh tokens go with the account through the FK cascade.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID string) error {
	if s.denylist == nil {
		return nil
	}
	if err := s.denylist.RevokeUser(ctx, userID, s.config.AccessTokenExpiry); err != nil {
		return appErrors.Store(err, "failed to revoke user sessions")
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuth.Code, appErrors.ErrAuth.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrAuth, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, ip, userAgent string) (*models.Session, error) {
	issuedAt := s.now()
	accessToken, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshValue, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	refresh := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshValue,
		ExpiresAt: issuedAt.Add(s.config.RefreshTokenExpiry),
		CreatedAt: issuedAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Store(err, "failed to persist refresh token")
	}

	return &models.Session{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     issuedAt,
		User: models.SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.FullName,
			Role:  user.Role,
			Home:  models.RouteForRole(user.Role),
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		Name:   user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) audit(ctx context.Context, userID, action, payload, ip, userAgent string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(payload),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
