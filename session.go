package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is the identity provider's canonical account record.
type User struct {
	ID       string         `json:"id,omitempty"`
	Email    string         `json:"email,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GetUserUUID parses the provider id into a UUID.
func (u *User) GetUserUUID() (uuid.UUID, error) {
	if u == nil {
		return uuid.Nil, fmt.Errorf("nil user")
	}
	return uuid.Parse(u.ID)
}

// Session is the bearer credential issued by the identity provider. The
// store caches it for consumer convenience but does not own it.
type Session struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	User         *User      `json:"user,omitempty"`
}

// GetUserID returns the owning user's id, falling back to the embedded user
// record and then to the access token's subject claim.
func (s *Session) GetUserID() string {
	if s == nil {
		return ""
	}

	if s.UserID != "" {
		return s.UserID
	}

	if s.User != nil && s.User.ID != "" {
		return s.User.ID
	}

	if sub, err := SubjectFromAccessToken(s.AccessToken); err == nil {
		return sub
	}

	return ""
}

// GetUser returns the embedded user record, synthesizing one from the access
// token subject when the provider omitted it.
func (s *Session) GetUser() *User {
	if s == nil {
		return nil
	}

	if s.User != nil {
		return s.User
	}

	if id := s.GetUserID(); id != "" {
		return &User{ID: id}
	}

	return nil
}

// GetExpiresAt returns the session expiry, reading it from the access token
// when the provider omitted the explicit field.
func (s *Session) GetExpiresAt() *time.Time {
	if s == nil {
		return nil
	}

	if s.ExpiresAt != nil {
		return s.ExpiresAt
	}

	if exp, err := ExpiryFromAccessToken(s.AccessToken); err == nil {
		return exp
	}

	return nil
}

func (s Session) String() string {
	expires := "<nil>"
	if at := s.GetExpiresAt(); at != nil {
		expires = at.Format(time.RFC1123)
	}
	return fmt.Sprintf("user=%s expires=%s", s.GetUserID(), expires)
}

// SubjectFromAccessToken extracts the subject claim from a provider-issued
// access token. The parse is unverified: signature checks belong to the
// provider, the client only needs routing data.
func SubjectFromAccessToken(raw string) (string, error) {
	claims, err := parseAccessToken(raw)
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}

// ExpiryFromAccessToken extracts the expiry claim from a provider-issued
// access token.
func ExpiryFromAccessToken(raw string) (*time.Time, error) {
	claims, err := parseAccessToken(raw)
	if err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, fmt.Errorf("token has no expiry")
	}

	return &exp.Time, nil
}

func parseAccessToken(raw string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty access token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	return claims, nil
}
