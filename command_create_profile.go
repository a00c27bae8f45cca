package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateProfileMessage provisions the profile row for a freshly signed-up
// account. Idempotent: an existing row for the user id is left untouched.
type CreateProfileMessage struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (e CreateProfileMessage) Type() string { return "profile.create" }

type CreateProfileHandler struct {
	repo RepositoryManager
}

func NewCreateProfileHandler(repo RepositoryManager) *CreateProfileHandler {
	return &CreateProfileHandler{repo: repo}
}

var _ ProfileCreator = (*CreateProfileHandler)(nil)

func (h *CreateProfileHandler) Execute(ctx context.Context, event CreateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateProfileHandler) execute(ctx context.Context, event CreateProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	profile := &Profile{
		Username: getUsername(event.Username, event.Email),
		Role:     RoleUser,
	}

	if id, err := uuid.Parse(event.UserID); err == nil {
		profile.ID = id
	} else if id, err := hashid.NewUUID(event.Email); err == nil {
		profile.ID = id
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if profile, err = h.repo.Profiles().GetOrCreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create profile")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile creation transaction failed")
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
