package identity

import (
	"context"
	"time"
)

// Session-readiness poll bounds for the server hand-off path. Fixed rather
// than per-call configurable; package variables so tests can shrink them.
var (
	SessionReadyInterval = 100 * time.Millisecond
	SessionReadyDeadline = 1500 * time.Millisecond
)

// bootstrap reconciles the optional server-supplied session with the token
// store exactly once. Loading drops to false when it settles, no matter how
// it settles.
func (s *Store) bootstrap(ctx context.Context, initial *Session) {
	defer func() {
		s.guards.finish()
		s.apply(func(st *Snapshot) {
			st.Loading = false
		})
	}()

	if initial == nil {
		s.bootstrapFromProvider(ctx)
		return
	}

	s.bootstrapFromHandoff(ctx, initial)
}

// bootstrapFromProvider establishes identity with a provider round-trip when
// the server supplied no session.
func (s *Store) bootstrapFromProvider(ctx context.Context) {
	user, err := s.tokens.GetUser(ctx)
	if err != nil {
		s.logger.Error("bootstrap user lookup failed", "error", err)
		s.setIdentity(nil, nil)
		return
	}

	if user == nil || user.ID == "" {
		s.setIdentity(nil, nil)
		return
	}

	session, err := s.tokens.GetSession(ctx)
	if err != nil {
		s.logger.Warn("bootstrap session lookup failed", "error", err)
	}

	s.setIdentity(user, session)
	s.resolveProfile(ctx, user.ID)
	s.guards.markProfileFetched()

	s.recordActivity(ctx, ActivityEventBootstrapComplete, user.ID, map[string]any{
		"source": "provider",
	})
}

// bootstrapFromHandoff pushes the server-rendered session into the token
// store and waits, bounded, for the store to confirm it before the profile
// read. That read may be access-controlled by the live session: too early
// and it silently returns no rows instead of erroring, so the short poll
// buys correctness without risking an indefinite hang.
func (s *Store) bootstrapFromHandoff(ctx context.Context, initial *Session) {
	userID := initial.GetUserID()

	if _, err := s.tokens.SetSession(ctx, initial.AccessToken, initial.RefreshToken); err != nil {
		s.logger.Error("bootstrap set session failed", "error", err)
	}

	s.setIdentity(initial.GetUser(), initial)

	err := Poll(ctx, PollConfig{Interval: SessionReadyInterval, Deadline: SessionReadyDeadline},
		func(ctx context.Context) (bool, error) {
			session, err := s.tokens.GetSession(ctx)
			if err != nil {
				return false, err
			}
			return session != nil && session.AccessToken != "", nil
		})
	if err != nil {
		// Soft deadline: the profile read still runs, it just might see an
		// unconfirmed session.
		s.logger.Warn("bootstrap session readiness", "error", err)
	}

	s.resolveProfile(ctx, userID)
	s.guards.markProfileFetched()

	s.recordActivity(ctx, ActivityEventBootstrapComplete, userID, map[string]any{
		"source":    "handoff",
		"confirmed": err == nil,
	})
}
