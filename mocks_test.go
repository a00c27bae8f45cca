package identity_test

import (
	"context"
	"sync"

	identity "github.com/drivelog/go-identity"
	"github.com/stretchr/testify/mock"
)

// MockProfileSource implements identity.ProfileSource
type MockProfileSource struct {
	mock.Mock
}

func (m *MockProfileSource) ProfileByUserID(ctx context.Context, userID string) (*identity.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

// profileSourceFunc adapts a function to identity.ProfileSource
type profileSourceFunc func(ctx context.Context, userID string) (*identity.Profile, error)

func (f profileSourceFunc) ProfileByUserID(ctx context.Context, userID string) (*identity.Profile, error) {
	return f(ctx, userID)
}

// fakeTokenStore is an in-memory stand-in for the identity provider's client
// SDK, with hooks for scripting failures and a working change stream.
type fakeTokenStore struct {
	mu        sync.Mutex
	user      *identity.User
	session   *identity.Session
	listeners map[int]identity.ChangeListener
	nextSub   int

	getUserErr    error
	getSessionErr error
	setSessionErr error
	signUpErr     error
	signInErr     error
	signOutErr    error
	oauthURL      string
	oauthErr      error

	// confirmAfter hides the session from GetSession for the first n calls,
	// simulating a provider that has not yet committed SetSession.
	confirmAfter    int
	getSessionCalls int
	setSessionCalls int
	signOutCalls    int

	onSignOut func()
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{listeners: map[int]identity.ChangeListener{}}
}

func (f *fakeTokenStore) GetUser(ctx context.Context) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	return f.user, nil
}

func (f *fakeTokenStore) GetSession(ctx context.Context) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSessionCalls++
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	if f.getSessionCalls <= f.confirmAfter {
		return nil, nil
	}
	return f.session, nil
}

func (f *fakeTokenStore) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setSessionCalls++
	if f.setSessionErr != nil {
		return nil, f.setSessionErr
	}
	f.session = &identity.Session{AccessToken: accessToken, RefreshToken: refreshToken}
	return f.session, nil
}

func (f *fakeTokenStore) SignUp(ctx context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.session, nil
}

func (f *fakeTokenStore) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeTokenStore) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.oauthErr != nil {
		return "", f.oauthErr
	}
	return f.oauthURL, nil
}

func (f *fakeTokenStore) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	hook := f.onSignOut
	err := f.signOutErr
	f.session = nil
	f.user = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeTokenStore) OnChange(fn identity.ChangeListener) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.listeners[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Emit pushes a change event to every listener, the way the provider SDK
// fires its callbacks.
func (f *fakeTokenStore) Emit(ctx context.Context, event identity.ChangeEvent, session *identity.Session) {
	f.mu.Lock()
	listeners := make([]identity.ChangeListener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, event, session)
	}
}

func (f *fakeTokenStore) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func sessionFor(userID string) *identity.Session {
	return &identity.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		UserID:       userID,
		User:         &identity.User{ID: userID, Email: userID + "@example.com"},
	}
}

// capturing sink in the style of the activity tests
type capturingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, event identity.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) byType(t identity.ActivityEventType) []identity.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []identity.ActivityEvent
	for _, e := range c.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
