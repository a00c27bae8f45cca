package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the profile record store.
type Profiles interface {
	repository.Repository[*Profile]

	ProfileByUserID(ctx context.Context, userID string) (*Profile, error)
	ProfileByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error)

	GetOrCreate(ctx context.Context, record *Profile) (*Profile, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
	_ ProfileSource                   = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) ProfileByUserID(ctx context.Context, userID string) (*Profile, error) {
	return a.ProfileByUserIDTx(ctx, a.db, userID)
}

// ProfileByUserIDTx returns the profile row keyed by the identity provider's
// user id, or (nil, nil) when no row exists.
func (a *profiles) ProfileByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}

	record := &Profile{}
	err = tx.NewSelect().
		Model(record).
		Where("pro.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) GetOrCreate(ctx context.Context, record *Profile) (*Profile, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *profiles) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	if record != nil && record.ID != uuid.Nil {
		existing, err := a.ProfileByUserIDTx(ctx, tx, record.ID.String())
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	return a.CreateTx(ctx, tx, record)
}
