package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/repository"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

// LoginInput is the body of POST /v1/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,max=200"`
}

// PublicUser is the user as exposed by the API. It never includes the hash.
type PublicUser struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsAdmin      bool       `json:"is_admin"`
	Permissions  []string   `json:"permissions"`
	FailedLogins int        `json:"failed_logins"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	SalesCount   int        `json:"sales_count"`
	SalesTotal   string     `json:"sales_total"`
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken      string     `json:"access_token"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshToken     string     `json:"refresh_token"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at"`
	TokenType        string     `json:"token_type"`
	User             PublicUser `json:"user"`
}

// AuthService issues and revokes tokens for staff accounts.
type AuthService struct {
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Audit      *repository.AuditRepo
	Issuer     utils.TokenIssuer
	RefreshTTL time.Duration
	Log        *logger.Logger
	now        func() time.Time
}

func NewAuthService(users *repository.UserRepo, tokens *repository.TokenRepo, audit *repository.AuditRepo,
	issuer utils.TokenIssuer, refreshTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Audit: audit, Issuer: issuer, RefreshTTL: refreshTTL, Log: log, now: time.Now}
}

// Login checks credentials and returns a fresh token pair. Unknown emails
// and wrong passwords share one error; a locked account gets
// ErrAccountLocked until the lock expires.
func (s *AuthService) Login(ctx context.Context, in LoginInput, ip, userAgent string) (TokenPair, error) {
	if err := ValidateStruct(in); err != nil {
		return TokenPair{}, err
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		utils.BurnPasswordCheck(in.Password)
		s.loginFailed(ctx, in.Email, "unknown email", ip)
		return TokenPair{}, ErrInvalidCredentials
	}
	if u.IsLocked(s.now()) {
		s.loginFailed(ctx, u.Email, "account locked", ip)
		return TokenPair{}, ErrAccountLocked
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		if u, err = s.Users.RecordLoginFailure(ctx, u.Email); err != nil {
			return TokenPair{}, err
		}
		s.loginFailed(ctx, u.Email, "wrong password", ip)
		if u.IsLocked(s.now()) {
			return TokenPair{}, ErrAccountLocked
		}
		return TokenPair{}, ErrInvalidCredentials
	}

	if u, err = s.Users.RecordLoginSuccess(ctx, u.Email); err != nil {
		return TokenPair{}, err
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return TokenPair{}, err
	}
	s.Audit.Append(ctx, model.AuditLoginSuccess, u.Email, map[string]any{
		"role":       u.Role,
		"ip":         ip,
		"user_agent": userAgent,
	})
	s.Log.LogAuthSuccess(ctx, u.Email, u.Role)
	return pair, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	hash := utils.HashRefreshRaw(raw)
	email, err := s.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	_ = s.Tokens.RevokeByHash(ctx, hash)
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	if u.IsLocked(s.now()) {
		return TokenPair{}, ErrAccountLocked
	}
	return s.issue(ctx, u)
}

// Logout revokes one refresh token, or every token of email when raw is
// empty.
func (s *AuthService) Logout(ctx context.Context, email, raw string) error {
	if raw == "" {
		if email == "" {
			return ErrInvalidRefresh
		}
		return s.Tokens.RevokeAllForUser(ctx, email)
	}
	hash := utils.HashRefreshRaw(raw)
	if _, err := s.Tokens.ValidateRefresh(ctx, hash); err != nil {
		return ErrInvalidRefresh
	}
	return s.Tokens.RevokeByHash(ctx, hash)
}

// Me returns the public view of email.
func (s *AuthService) Me(ctx context.Context, email string) (PublicUser, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return PublicUser{}, err
	}
	return ToPublicUser(u), nil
}

// ListUsers returns every account sorted by email.
func (s *AuthService) ListUsers(ctx context.Context) []PublicUser {
	users := s.Users.List(ctx)
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, ToPublicUser(u))
	}
	return out
}

func (s *AuthService) issue(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := s.Issuer.NewAccessToken(u.Email, u.Name, u.Role, u.Permissions())
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Tokens.StoreRefresh(ctx, u.Email, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
		TokenType:        "Bearer",
		User:             ToPublicUser(u),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, reason, ip string) {
	s.Audit.Append(ctx, model.AuditLoginFailure, email, map[string]any{"reason": reason, "ip": ip})
	s.Log.LogAuthFailure(ctx, email, reason, ip)
}

// ToPublicUser strips credentials from u.
func ToPublicUser(u model.User) PublicUser {
	pu := PublicUser{
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsAdmin:      u.Role == model.RoleManager,
		Permissions:  u.Permissions(),
		FailedLogins: u.FailedLogins,
		SalesCount:   u.SalesCount,
		SalesTotal:   centsToString(u.SalesTotal),
	}
	if !u.LockedUntil.IsZero() {
		t := u.LockedUntil
		pu.LockedUntil = &t
	}
	if !u.LastLoginAt.IsZero() {
		t := u.LastLoginAt
		pu.LastLoginAt = &t
	}
	return pu
}
