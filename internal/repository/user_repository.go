package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

// Lockout policy applied by RecordLoginFailure.
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// UserRepo is the in-memory staff directory. Emails are normalized to lower
// case before every lookup.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User
	now   func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*model.User), now: time.Now}
}

// SeedUser is one account created by Seed.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultSeed is the demo staff created when SEED_USERS is on.
var DefaultSeed = []SeedUser{
	{Name: "Gerente Demo", Email: "gerente@cinema.local", Password: "gerente123", Role: model.RoleManager},
	{Name: "Vendedor Demo", Email: "vendedor@cinema.local", Password: "vendedor123", Role: model.RoleSeller},
	{Name: "Atendente Demo", Email: "atendente@cinema.local", Password: "atendente123", Role: model.RoleAttendant},
}

// Seed creates each account that does not exist yet.
func (r *UserRepo) Seed(ctx context.Context, seed []SeedUser, cost int) error {
	for _, s := range seed {
		if _, err := r.Create(ctx, s.Name, s.Email, s.Password, s.Role, cost); err != nil && !isConflict(err) {
			return err
		}
	}
	return nil
}

// Create hashes password and stores a new user. A taken email yields
// ErrConflict.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (model.User, error) {
	email = normalizeEmail(email)
	if _, ok := model.RolePermissions[role]; !ok {
		return model.User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[email]; ok {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrConflict)
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	r.users[email] = u
	return *u, nil
}

// GetByEmail returns a copy of the user or ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return *u, nil
}

// List returns all users sorted by email.
func (r *UserRepo) List(ctx context.Context) []model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// RecordLoginFailure bumps the failure counter and locks the account once it
// reaches MaxFailedLogins. It returns the updated user.
func (r *UserRepo) RecordLoginFailure(ctx context.Context, email string) (model.User, error) {
	return r.update(email, func(u *model.User) {
		u.FailedLogins++
		if u.FailedLogins >= MaxFailedLogins {
			u.LockedUntil = r.now().Add(LockoutDuration)
			u.FailedLogins = 0
		}
	})
}

// RecordLoginSuccess clears the failure state and stamps LastLoginAt.
func (r *UserRepo) RecordLoginSuccess(ctx context.Context, email string) (model.User, error) {
	return r.update(email, func(u *model.User) {
		u.FailedLogins = 0
		u.LockedUntil = time.Time{}
		u.LastLoginAt = r.now().UTC()
	})
}

// RecordSale credits (or, with a negative count, debits) a seller.
func (r *UserRepo) RecordSale(ctx context.Context, email string, count int, cents int64) error {
	_, err := r.update(email, func(u *model.User) {
		u.SalesCount += count
		u.SalesTotal += cents
		if u.SalesCount < 0 {
			u.SalesCount = 0
		}
		if u.SalesTotal < 0 {
			u.SalesTotal = 0
		}
	})
	return err
}

// SellerRanking returns users with at least one sale, best revenue first.
func (r *UserRepo) SellerRanking(ctx context.Context) []model.User {
	var out []model.User
	for _, u := range r.List(ctx) {
		if u.SalesCount > 0 {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SalesTotal > out[j].SalesTotal })
	return out
}

func (r *UserRepo) update(email string, fn func(*model.User)) (model.User, error) {
	email = normalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	fn(u)
	return *u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
