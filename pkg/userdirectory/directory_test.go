package userdirectory

import (
	"testing"
	"time"

	"github.com/Roshick/go-autumn-assetlock/pkg/cache"
	"github.com/Roshick/go-autumn-assetlock/pkg/locker"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fixture struct {
	repository Repository
	cache      cache.Cache[User]
	cut        *Directory
	exec       func(query string, args ...any)
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.TODO()

	repository, db, err := NewSQLRepository(ctx, DriverSQLite, ":memory:")
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	userCache := cache.NewMemoryCache[User]()
	return fixture{
		repository: repository,
		cache:      userCache,
		cut:        NewDirectory(repository, userCache, locker.NewMemoryLocker(nil), 10*time.Minute),
		exec: func(query string, args ...any) {
			_, err := db.ExecContext(ctx, query, args...)
			require.Nil(t, err)
		},
	}
}

func TestDirectoryReadsThroughCache(t *testing.T) {
	ctx := context.TODO()
	f := setup(t)

	user := User{ID: 1, Username: "test_user_1", FirstName: "Jane", LastName: "Doe"}
	require.Nil(t, f.repository.Create(ctx, user))

	cached, err := f.cache.Get(ctx, "1")
	require.Nil(t, err)
	require.Nil(t, cached)

	got, err := f.cut.Read(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, user, got)

	cached, err = f.cache.Get(ctx, "1")
	require.Nil(t, err)
	require.NotNil(t, cached)
	require.Equal(t, user, *cached)

	// served from cache even after the row changed underneath
	f.exec(`UPDATE users SET username = 'renamed' WHERE id = 1`)
	got, err = f.cut.Read(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, "test_user_1", got.Username)

	require.Nil(t, f.cut.Reconcile(ctx, 1))
	got, err = f.cut.Read(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, "renamed", got.Username)
}

func TestDirectoryUnknownUser(t *testing.T) {
	ctx := context.TODO()
	f := setup(t)

	_, err := f.cut.Read(ctx, 42)
	require.ErrorAs(t, err, &ErrUserNotFound{})

	profile, err := f.cut.Profile(ctx, 42)
	require.Nil(t, err)
	require.Nil(t, profile)
}

func TestDirectoryCreateAndProfile(t *testing.T) {
	ctx := context.TODO()
	f := setup(t)

	require.Nil(t, f.cut.Create(ctx, User{ID: 2, Username: "test_user_2"}))

	cached, err := f.cache.Get(ctx, "2")
	require.Nil(t, err)
	require.NotNil(t, cached)

	profile, err := f.cut.Profile(ctx, 2)
	require.Nil(t, err)
	require.Equal(t, &Profile{ID: 2, Username: "test_user_2"}, profile)

	err = f.cut.Create(ctx, User{ID: 3, Username: "test_user_2"})
	require.Error(t, err)
}

func TestDirectoryReconcileAll(t *testing.T) {
	ctx := context.TODO()
	f := setup(t)

	require.Nil(t, f.cut.Create(ctx, User{ID: 1, Username: "test_user_1"}))
	require.Nil(t, f.cut.Create(ctx, User{ID: 2, Username: "test_user_2"}))
	f.exec(`DELETE FROM users WHERE id = 2`)
	f.exec(`INSERT INTO users (id, username) VALUES (3, 'test_user_3')`)

	require.Nil(t, f.cut.ReconcileAll(ctx))

	keys, err := f.cache.Keys(ctx)
	require.Nil(t, err)
	require.ElementsMatch(t, []string{"1", "3"}, keys)
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Jane Doe", User{Username: "jd", FirstName: "Jane", LastName: "Doe"}.DisplayName())
	require.Equal(t, "Jane", User{Username: "jd", FirstName: "Jane"}.DisplayName())
	require.Equal(t, "jd", User{Username: "jd"}.DisplayName())
}
