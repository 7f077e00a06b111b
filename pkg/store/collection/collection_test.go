package collection

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octospacc/Pignio/pkg/store/user"
)

func testIndex(t *testing.T) (*Index, *user.Store) {
	t.Helper()
	users := user.NewStore(t.TempDir(), false)
	require.NoError(t, users.Save(&user.User{Username: "alice", Password: "x"}))
	return NewIndex(users, false), users
}

func TestToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("PinCreatesNamedCollection", func(t *testing.T) {
		idx, _ := testIndex(t)

		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", true))

		_, err := os.Stat(idx.Path("alice", "recipes"))
		require.NoError(t, err)

		ok, err := idx.Contains(ctx, "alice", "recipes", "100")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DefaultCollectionLivesInUserRecord", func(t *testing.T) {
		idx, users := testIndex(t)

		require.NoError(t, idx.Toggle(ctx, "alice", "", "100", true))

		loaded, err := users.Load("alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"100"}, loaded.Items)
		// Credentials survive the rewrite.
		assert.Equal(t, "x", loaded.Password)
	})

	t.Run("UnpinRemoves", func(t *testing.T) {
		idx, _ := testIndex(t)

		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", true))
		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", false))

		ok, err := idx.Contains(ctx, "alice", "recipes", "100")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UnpinNonMemberFails", func(t *testing.T) {
		idx, _ := testIndex(t)
		err := idx.Toggle(ctx, "alice", "recipes", "404", false)
		assert.ErrorIs(t, err, ErrNotPinned)
	})

	t.Run("ToggleDoesNotDeduplicate", func(t *testing.T) {
		// Callers must pre-check membership via Contains; Toggle is a
		// bare list append.
		idx, _ := testIndex(t)

		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", true))

		ok, err := idx.Contains(ctx, "alice", "recipes", "100")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", true))
		coll, err := idx.Load(ctx, "alice", "recipes")
		require.NoError(t, err)
		assert.Len(t, coll.Items, 2)
	})

	t.Run("ConcurrentTogglesDoNotLoseUpdates", func(t *testing.T) {
		idx, _ := testIndex(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_ = idx.Toggle(ctx, "alice", "recipes", string(rune('a'+n)), true)
			}(i)
		}
		wg.Wait()

		coll, err := idx.Load(ctx, "alice", "recipes")
		require.NoError(t, err)
		assert.Len(t, coll.Items, 20)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("ItemsExposedNewestFirst", func(t *testing.T) {
		idx, _ := testIndex(t)

		for _, id := range []string{"100", "101", "102"} {
			require.NoError(t, idx.Toggle(ctx, "alice", "recipes", id, true))
		}

		coll, err := idx.Load(ctx, "alice", "recipes")
		require.NoError(t, err)
		assert.Equal(t, []string{"102", "101", "100"}, coll.Items)
	})

	t.Run("MissingCollectionLoadsEmpty", func(t *testing.T) {
		idx, _ := testIndex(t)
		coll, err := idx.Load(ctx, "alice", "nope")
		require.NoError(t, err)
		assert.Empty(t, coll.Items)
	})
}

func TestWalkAll(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultAlwaysPresent", func(t *testing.T) {
		idx, _ := testIndex(t)

		all, err := idx.WalkAll(ctx, "alice")
		require.NoError(t, err)
		require.Contains(t, all, "")
		assert.Empty(t, all[""].Items)
	})

	t.Run("DiscoversNamedCollections", func(t *testing.T) {
		idx, _ := testIndex(t)

		require.NoError(t, idx.Toggle(ctx, "alice", "", "1", true))
		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "2", true))
		require.NoError(t, idx.Toggle(ctx, "alice", "travel", "3", true))

		all, err := idx.WalkAll(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Equal(t, []string{"1"}, all[""].Items)
		assert.Equal(t, []string{"2"}, all["recipes"].Items)
		assert.Equal(t, []string{"3"}, all["travel"].Items)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesNamedCollection", func(t *testing.T) {
		idx, _ := testIndex(t)
		require.NoError(t, idx.Toggle(ctx, "alice", "recipes", "100", true))
		require.NoError(t, idx.Delete("alice", "recipes"))

		all, err := idx.WalkAll(ctx, "alice")
		require.NoError(t, err)
		assert.NotContains(t, all, "recipes")
	})

	t.Run("DefaultCannotBeDeleted", func(t *testing.T) {
		idx, _ := testIndex(t)
		assert.Error(t, idx.Delete("alice", ""))
	})
}
