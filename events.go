package identity

import (
	"context"
	"sync"
)

// ChangeEvent is a session-change notification kind pushed by the token
// store.
type ChangeEvent string

const (
	EventInitialSession ChangeEvent = "INITIAL_SESSION"
	EventSignedIn       ChangeEvent = "SIGNED_IN"
	EventSignedOut      ChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
	EventUserUpdated    ChangeEvent = "USER_UPDATED"
)

// bootstrapGuards suppresses change-stream work that bootstrap already owns.
// Bootstrap and the change stream interleave arbitrarily; without these
// flags an early SIGNED_IN notification re-triggers the profile fetch that
// bootstrap is in the middle of performing.
type bootstrapGuards struct {
	mu             sync.Mutex
	inFlight       bool
	profileFetched bool
	hasInitial     bool
	initialUserID  string
}

func (g *bootstrapGuards) begin(hasInitial bool, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = true
	g.hasInitial = hasInitial
	g.initialUserID = userID
}

func (g *bootstrapGuards) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
}

func (g *bootstrapGuards) markProfileFetched() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profileFetched = true
}

// suppressInitial reports whether an INITIAL_SESSION event duplicates the
// server hand-off bootstrap already handled.
func (g *bootstrapGuards) suppressInitial() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasInitial
}

// suppressProfileFetch reports whether a SIGNED_IN for userID would repeat
// the profile fetch bootstrap performs for the hand-off session's user.
func (g *bootstrapGuards) suppressProfileFetch(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasInitial || userID == "" || userID != g.initialUserID {
		return false
	}

	return g.inFlight || g.profileFetched
}

// handleChange drives state transitions for change-stream events not already
// owned by bootstrap. It stays subscribed for the store's entire lifetime;
// Close turns every subsequent invocation into a no-op.
func (s *Store) handleChange(ctx context.Context, event ChangeEvent, session *Session) {
	if !s.alive() {
		return
	}

	userID := session.GetUserID()

	switch {
	case event == EventInitialSession && s.guards.suppressInitial():
		// Bootstrap owns the hand-off session.
		return

	case event == EventSignedIn && s.guards.suppressProfileFetch(userID):
		// Same user bootstrap is (or was) fetching for: refresh the
		// credential pair but do not fetch the profile twice.
		s.setIdentity(session.GetUser(), session)
		return
	}

	s.apply(func(st *Snapshot) {
		st.Loading = true
	})
	defer s.apply(func(st *Snapshot) {
		st.Loading = false
	})

	s.setIdentity(session.GetUser(), session)

	if userID != "" {
		s.resolveProfile(ctx, userID)
	} else {
		s.apply(func(st *Snapshot) {
			st.Profile = nil
		})
	}

	s.logger.Debug("session change handled", "event", string(event), "user_id", userID)
}
