package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ProfileResolveTimeout bounds every profile read. The read races this
// deadline; whichever settles first wins and the loser's result is
// discarded. Package variable so tests can shrink the window.
var ProfileResolveTimeout = 10 * time.Second

type resolveResult struct {
	profile *Profile
	err     error
}

// resolveProfile fetches the profile for userID and settles the outcome into
// the store. It never returns an error: transient failures keep the last
// known profile, fatal failures clear it, and a store closed mid-flight
// swallows the write entirely.
func (s *Store) resolveProfile(ctx context.Context, userID string) {
	if userID == "" {
		s.apply(func(st *Snapshot) {
			st.Profile = nil
		})
		return
	}

	gen := s.generation()

	// Buffered so the losing racer's send never blocks; its result is
	// received by nobody and dropped with the channel.
	out := make(chan resolveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- resolveResult{err: goerrors.New(
					fmt.Sprintf("profile query panic: %v", r),
					goerrors.CategoryInternal,
				).WithTextCode(textCodeResolvePanic)}
			}
		}()

		profile, err := s.profiles.ProfileByUserID(ctx, userID)
		out <- resolveResult{profile: profile, err: err}
	}()

	timeout := time.NewTimer(ProfileResolveTimeout)
	defer timeout.Stop()

	var res resolveResult
	select {
	case res = <-out:
	case <-timeout.C:
		res = resolveResult{err: ErrProfileResolveTimeout}
	case <-ctx.Done():
		res = resolveResult{err: goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "profile query interrupted")}
	}

	s.settleProfile(ctx, gen, userID, res)
}

func (s *Store) settleProfile(ctx context.Context, gen uint64, userID string, res resolveResult) {
	switch {
	case res.err == nil && res.profile == nil:
		// No row for this user. Not an error; the account simply has no
		// derived record yet.
		s.applyGen(gen, func(st *Snapshot) {
			st.Profile = nil
		})

	case res.err == nil:
		profile := res.profile.Normalize()
		if s.applyGen(gen, func(st *Snapshot) {
			st.Profile = profile
		}) {
			s.recordActivity(ctx, ActivityEventProfileRefreshed, userID, map[string]any{
				"username": profile.Username,
				"plan":     profile.Plan,
			})
		}

	case IsTransientResolveError(res.err):
		if s.hasProfileFor(gen) {
			// A flaky read must never blank a verified user's state, so the
			// stale profile stays until a read settles either way.
			s.logger.Warn("transient profile fetch failure, keeping cached profile",
				"user_id", userID, "error", res.err)
			return
		}
		s.logger.Warn("transient profile fetch failure with no cached profile",
			"user_id", userID, "error", res.err)
		s.applyGen(gen, func(st *Snapshot) {
			st.Profile = nil
		})

	default:
		s.logger.Error("profile fetch failed", "user_id", userID, "error", res.err)
		s.applyGen(gen, func(st *Snapshot) {
			st.Profile = nil
		})
	}
}

func (s *Store) hasProfileFor(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted && s.gen == gen && s.state.Profile != nil
}
