// Package session implements the authentication gate: a user is either
// anonymous or authenticated, and protected actions redirect anonymous users
// to the login entry point.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"hiredup/internal/notify"
	"hiredup/internal/slots"
)

var (
	// ErrInvalidCredentials is returned by Login when verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned by registrars that enforce unique emails.
	ErrEmailTaken = errors.New("email already registered")
)

// LoginPath 是未登录用户被重定向到的入口。
const LoginPath = "/login"

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verifier checks a credential pair. Implementations return an error wrapping
// ErrInvalidCredentials for a mismatch.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (User, error)
}

// Registrar creates an account and returns its identity.
type Registrar interface {
	Register(ctx context.Context, name, email, password string) (User, error)
}

// Gate tracks at most one authenticated user and mirrors it to the user slot.
type Gate struct {
	slots     slots.Store
	verifier  Verifier
	registrar Registrar
	notifier  notify.Notifier
	logger    *slog.Logger

	user *User
}

// New 构造匿名状态的 Gate。
func New(store slots.Store, verifier Verifier, registrar Registrar, notifier notify.Notifier, logger *slog.Logger) *Gate {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		slots:     store,
		verifier:  verifier,
		registrar: registrar,
		notifier:  notifier,
		logger:    logger,
	}
}

// Restore loads the mirrored identity for owner. A missing, unreadable or
// corrupt mirror leaves the gate anonymous.
func (g *Gate) Restore(ctx context.Context, owner string) bool {
	data, ok, err := g.slots.Get(ctx, owner, slots.User)
	if err != nil {
		g.logger.Warn("read session mirror failed", slog.String("owner", owner), slog.Any("error", err))
		return false
	}
	if !ok {
		return false
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil || u.ID != owner {
		g.logger.Warn("session mirror is corrupt", slog.String("owner", owner))
		return false
	}
	g.user = &u
	return true
}

// Login verifies the credentials and, on success, establishes the session.
func (g *Gate) Login(ctx context.Context, email, password string) (User, error) {
	u, err := g.verifier.Verify(ctx, email, password)
	if err != nil {
		g.emit(ctx, email, notify.Notification{
			Kind:        notify.KindLoginFailed,
			Title:       "Login failed",
			Description: "Incorrect email or password",
			Variant:     notify.VariantDestructive,
		})
		return User{}, err
	}
	if err := g.establish(ctx, u); err != nil {
		return User{}, err
	}
	g.emit(ctx, u.ID, notify.Notification{
		Kind:        notify.KindLoggedIn,
		Title:       "Logged in successfully!",
		Description: fmt.Sprintf("Welcome back, %s!", u.Name),
	})
	return u, nil
}

// Register creates an account through the registrar and logs it in.
func (g *Gate) Register(ctx context.Context, name, email, password string) (User, error) {
	u, err := g.registrar.Register(ctx, name, email, password)
	if err != nil {
		return User{}, err
	}
	if err := g.establish(ctx, u); err != nil {
		return User{}, err
	}
	g.emit(ctx, u.ID, notify.Notification{
		Kind:        notify.KindAccountCreated,
		Title:       "Account created",
		Description: "Your account has been created successfully!",
	})
	return u, nil
}

// Logout clears the session and its mirror.
func (g *Gate) Logout(ctx context.Context) error {
	u := g.user
	g.user = nil
	if u == nil {
		return nil
	}
	if err := g.slots.Delete(ctx, u.ID, slots.User); err != nil {
		return fmt.Errorf("clear session mirror: %w", err)
	}
	g.emit(ctx, u.ID, notify.Notification{
		Kind:        notify.KindLoggedOut,
		Title:       "Logged out",
		Description: "You've been logged out successfully.",
	})
	return nil
}

func (g *Gate) IsAuthenticated() bool {
	return g.user != nil
}

// User returns the current identity, if any.
func (g *Gate) User() (User, bool) {
	if g.user == nil {
		return User{}, false
	}
	return *g.user, true
}

// Require returns the login redirect for returnTo when the gate is anonymous.
func (g *Gate) Require(returnTo string) (string, bool) {
	if g.IsAuthenticated() {
		return "", true
	}
	return LoginRedirect(returnTo), false
}

// LoginRedirect 构造携带回跳地址的登录入口。
func LoginRedirect(returnTo string) string {
	if returnTo == "" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(returnTo)
}

func (g *Gate) establish(ctx context.Context, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := g.slots.Set(ctx, u.ID, slots.User, data); err != nil {
		return fmt.Errorf("mirror session: %w", err)
	}
	g.user = &u
	return nil
}

func (g *Gate) emit(ctx context.Context, owner string, n notify.Notification) {
	if err := g.notifier.Notify(ctx, owner, n); err != nil {
		g.logger.Warn("deliver notification failed", slog.String("kind", string(n.Kind)), slog.Any("error", err))
	}
}
