package service

import "errors"

// Service-level sentinels. Handlers map them to status codes.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("a session with this id already exists")
	ErrSaleNotFound       = errors.New("sale not found for this session")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked after repeated failed logins")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrUserNotFound       = errors.New("user not found")
)
