package identity

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the state tuple exposed to consumers. The zero profile/user
// pointers mean "signed out"; Loading stays true from construction until the
// first bootstrap resolution settles.
type Snapshot struct {
	User            *User
	Session         *Session
	Profile         *Profile
	Loading         bool
	ShowLogoutModal bool
}

// SignedIn reports whether the snapshot carries an authenticated user.
func (s Snapshot) SignedIn() bool {
	return s.User != nil && s.User.ID != ""
}

// Store synchronizes the current user, session, and profile across the
// server bootstrap hand-off, the token store, and the provider's change
// stream. It has one writer role; consumers read snapshots or subscribe.
type Store struct {
	tokens   TokenStore
	profiles ProfileSource
	creator  ProfileCreator

	logger   Logger
	provider LoggerProvider
	activity ActivitySink
	navigate func()

	mu      sync.RWMutex
	state   Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
	mounted bool
	gen     uint64

	guards      *bootstrapGuards
	unsubscribe func()
	startOnce   sync.Once
	closeOnce   sync.Once
}

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithLogger sets the logger used by the store and its components.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		s.provider, s.logger = ResolveLogger("identity.store", s.provider, logger)
	}
}

// WithLoggerProvider overrides the logger provider used by the store.
func WithLoggerProvider(provider LoggerProvider) StoreOption {
	return func(s *Store) {
		s.provider, s.logger = ResolveLogger("identity.store", provider, s.logger)
	}
}

// WithActivitySink configures an ActivitySink for emitting identity events.
func WithActivitySink(sink ActivitySink) StoreOption {
	return func(s *Store) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithNavigator sets the hard-navigation hook invoked after sign-out. Stale
// server cookies must never leave the user half signed out, so the hook runs
// regardless of the server invalidation outcome.
func WithNavigator(fn func()) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.navigate = fn
		}
	}
}

// WithProfileCreator configures the out-of-band profile provisioning run
// best-effort after sign-up.
func WithProfileCreator(creator ProfileCreator) StoreOption {
	return func(s *Store) {
		s.creator = creator
	}
}

// New builds a Store. Loading starts true and stays true until Start's
// bootstrap settles.
func New(tokens TokenStore, profiles ProfileSource, opts ...StoreOption) *Store {
	provider, logger := ResolveLogger("identity.store", nil, nil)

	s := &Store{
		tokens:   tokens,
		profiles: profiles,
		logger:   logger,
		provider: provider,
		activity: noopActivitySink{},
		navigate: func() {},
		state:    Snapshot{Loading: true},
		subs:     map[int]func(Snapshot){},
		mounted:  true,
		guards:   &bootstrapGuards{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start installs the change-stream subscription and runs the one-time
// bootstrap reconciliation, blocking until it settles. initial is the
// server-supplied session from the rendered hand-off, or nil. Subsequent
// calls are no-ops.
func (s *Store) Start(ctx context.Context, initial *Session) {
	s.startOnce.Do(func() {
		s.guards.begin(initial != nil, initial.GetUserID())
		s.unsubscribe = s.tokens.OnChange(s.handleChange)
		s.bootstrap(ctx, initial)
	})
}

// Close tears the store down: the change subscription is released and every
// continuation still in flight becomes a silent no-op instead of a write
// into the dead store.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.mounted = false
		unsub := s.unsubscribe
		s.unsubscribe = nil
		s.subs = map[int]func(Snapshot){}
		s.mu.Unlock()

		if unsub != nil {
			unsub()
		}
	})
}

// Snapshot returns a copy of the current state tuple.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a read-only observer invoked with a snapshot copy on
// every state change. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetShowLogoutModal toggles the logged-out acknowledgement flag.
func (s *Store) SetShowLogoutModal(show bool) {
	s.apply(func(st *Snapshot) {
		st.ShowLogoutModal = show
	})
}

func (s *Store) alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// apply mutates the snapshot under lock and notifies subscribers. Writes
// after Close are dropped.
func (s *Store) apply(mutate func(*Snapshot)) bool {
	return s.applyAt(nil, mutate)
}

// applyGen is like apply but only writes while the captured generation is
// still current, so a late continuation cannot clobber newer state.
func (s *Store) applyGen(gen uint64, mutate func(*Snapshot)) bool {
	return s.applyAt(&gen, mutate)
}

func (s *Store) applyAt(gen *uint64, mutate func(*Snapshot)) bool {
	s.mu.Lock()
	if !s.mounted || (gen != nil && *gen != s.gen) {
		s.mu.Unlock()
		return false
	}

	mutate(&s.state)
	snap := s.state

	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// setIdentity replaces the user/session pair. The generation only advances
// when the user id actually changes: a token refresh for the same user must
// not invalidate a profile resolution already in flight, but a resolution
// keyed to a previous user must discard its result.
func (s *Store) setIdentity(user *User, session *Session) bool {
	return s.applyAt(nil, func(st *Snapshot) {
		prevID := ""
		if st.User != nil {
			prevID = st.User.ID
		}
		nextID := ""
		if user != nil {
			nextID = user.ID
		}
		if prevID != nextID {
			s.gen++
		}

		st.User = user
		st.Session = session
		if user == nil {
			st.Profile = nil
		}
	})
}

func (s *Store) recordActivity(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
