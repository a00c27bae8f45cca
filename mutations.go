package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const oauthProviderGoogle = "google"

type credentials struct {
	Email    string
	Password string
}

func (c credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 100)),
	)
}

// SignUp registers a new account with the identity provider and provisions
// the profile row best-effort. A provisioning failure is logged, not
// surfaced: the sign-in confirmation path remains the source of truth for
// the row.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	if !s.alive() {
		return ErrStoreClosed
	}

	if err := (credentials{Email: email, Password: password}).Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign up credentials")
	}

	session, err := s.tokens.SignUp(ctx, email, password)
	if err != nil {
		s.recordActivity(ctx, ActivityEventSignUpFailure, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return goerrors.Wrap(err, goerrors.CategoryAuth, "sign up rejected").
			WithTextCode(textCodeSignUpRejected)
	}

	userID := session.GetUserID()
	s.recordActivity(ctx, ActivityEventSignUpSuccess, userID, map[string]any{
		"email": email,
	})

	if s.creator != nil && userID != "" {
		msg := CreateProfileMessage{UserID: userID, Email: email}
		if err := s.creator.Execute(ctx, msg); err != nil {
			s.logger.Warn("profile provisioning failed", "user_id", userID, "error", err)
		}
	}

	return nil
}

// SignIn authenticates with email and password. The state update arrives
// through the change stream's SIGNED_IN event.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if !s.alive() {
		return ErrStoreClosed
	}

	_, err := s.tokens.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.recordActivity(ctx, ActivityEventSignInFailure, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return goerrors.Wrap(err, goerrors.CategoryAuth, "sign in rejected").
			WithTextCode(textCodeSignInRejected)
	}

	return nil
}

// SignInWithGoogle starts the OAuth redirect flow and returns the provider
// URL. Completion is observed later as a SIGNED_IN event, never through this
// call.
func (s *Store) SignInWithGoogle(ctx context.Context) (string, error) {
	if !s.alive() {
		return "", ErrStoreClosed
	}

	url, err := s.tokens.SignInWithOAuth(ctx, oauthProviderGoogle)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryAuth, "oauth redirect failed")
	}

	return url, nil
}

// SignOut clears local state before any network round-trip so the UI reacts
// instantly, then invalidates the server session, then forces the configured
// navigation regardless of the invalidation outcome.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.RLock()
	userID := ""
	if s.state.User != nil {
		userID = s.state.User.ID
	}
	s.mu.RUnlock()

	cleared := s.applyAt(nil, func(st *Snapshot) {
		s.gen++
		st.User = nil
		st.Session = nil
		st.Profile = nil
		st.ShowLogoutModal = true
	})
	if !cleared {
		return
	}

	if err := s.tokens.SignOut(ctx); err != nil {
		s.logger.Error("server sign-out failed", "error", err)
	}

	s.recordActivity(ctx, ActivityEventSignOut, userID, nil)
	s.navigate()
}

// RefreshProfile re-resolves the current user's profile. External callers
// use it after mutating profile fields through their own API to pull the
// authoritative value back in.
func (s *Store) RefreshProfile(ctx context.Context) {
	s.mu.RLock()
	userID := ""
	if s.state.User != nil {
		userID = s.state.User.ID
	}
	s.mu.RUnlock()

	s.resolveProfile(ctx, userID)
}
