package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventBootstrapComplete ActivityEventType = "identity.bootstrap.complete"
	ActivityEventSignInSuccess     ActivityEventType = "identity.signin.success"
	ActivityEventSignInFailure     ActivityEventType = "identity.signin.failure"
	ActivityEventSignUpSuccess     ActivityEventType = "identity.signup.success"
	ActivityEventSignUpFailure     ActivityEventType = "identity.signup.failure"
	ActivityEventSignOut           ActivityEventType = "identity.signout"
	ActivityEventProfileRefreshed  ActivityEventType = "identity.profile.refreshed"
)

// ActivityEvent captures audit-friendly information about a transition.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
