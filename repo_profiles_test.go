package identity

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", "#", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.NewCreateTable().Model((*Profile)(nil)).Exec(context.Background())
	require.NoError(t, err)

	return db
}

func TestProfileByUserID(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfilesRepository(db)
	ctx := context.Background()

	id := uuid.New()
	seeded := &Profile{
		ID:          id,
		Username:    "alice",
		DisplayName: "Alice Doe",
		AvatarURL:   "https://cdn.example.com/alice.png",
		Role:        RoleUser,
		Plan:        "pro",
	}

	_, err := db.NewInsert().Model(seeded).Exec(ctx)
	require.NoError(t, err)

	found, err := repo.ProfileByUserID(ctx, id.String())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)
	assert.Equal(t, "pro", found.Plan)
}

func TestProfileByUserIDMissingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfilesRepository(db)

	found, err := repo.ProfileByUserID(context.Background(), uuid.New().String())
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestProfileByUserIDRejectsMalformedID(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfilesRepository(db)

	_, err := repo.ProfileByUserID(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfilesRepository(db)
	ctx := context.Background()

	id := uuid.New()
	record := &Profile{ID: id, Username: "alice", Role: RoleUser}

	first, err := repo.GetOrCreate(ctx, record)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := repo.GetOrCreate(ctx, &Profile{ID: id, Username: "alice-dupe", Role: RoleUser})
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "alice", again.Username, "existing row wins")

	count, err := db.NewSelect().Model((*Profile)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepositoryManager(t *testing.T) {
	db := newTestDB(t)
	manager := NewRepositoryManager(db)

	require.NoError(t, manager.Validate())
	require.NotNil(t, manager.Profiles())

	err := manager.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := manager.Profiles().GetOrCreateTx(ctx, tx, &Profile{
			ID:       uuid.New(),
			Username: "bob",
			Role:     RoleUser,
		})
		return err
	})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, manager.RunInTx(cancelled, nil, func(ctx context.Context, tx bun.Tx) error {
		return nil
	}), context.Canceled)
}
