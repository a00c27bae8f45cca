package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider hands out named, component-scoped loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ChangeListener receives session-change notifications pushed by the token
// store. A nil session accompanies sign-out events.
type ChangeListener func(ctx context.Context, event ChangeEvent, session *Session)

// TokenStore is the boundary to the hosted identity provider's client SDK.
// Its correctness is assumed; the store only coordinates around it.
type TokenStore interface {
	// GetUser performs a round-trip to the identity provider rather than
	// reading the local cache, so a forged or stale local token is never
	// trusted on its own.
	GetUser(ctx context.Context) (*User, error)
	GetSession(ctx context.Context) (*Session, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignInWithOAuth returns the provider redirect URL. Completion is
	// observed later through the change stream, not the return value.
	SignInWithOAuth(ctx context.Context, provider string) (string, error)
	SignOut(ctx context.Context) error
	OnChange(fn ChangeListener) (unsubscribe func())
}

// ProfileSource resolves the derived profile record for a user id. A missing
// row is reported as (nil, nil), not as an error.
type ProfileSource interface {
	ProfileByUserID(ctx context.Context, userID string) (*Profile, error)
}

// ProfileCreator provisions the out-of-band profile row after sign-up.
type ProfileCreator interface {
	Execute(ctx context.Context, event CreateProfileMessage) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
