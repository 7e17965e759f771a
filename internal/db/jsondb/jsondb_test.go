package jsondb

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

func newTestDB(t *testing.T) (*JSONDB, string) {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "db_test.json")
	theStorage, err := New(fileName)
	require.NoError(t, err)
	require.NotNil(t, theStorage)

	return theStorage, fileName
}

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		ctx := context.Background()
		theStorage, _ := newTestDB(t)

		created, err := theStorage.CreateUser(ctx, user.New("Ann", "NYC", "Eng"))
		require.NoError(t, err, "The `theStorage.CreateUser()` should not return error")
		require.NotNil(t, created.ID)
		assert.Equal(t, "Ann", created.Name)
		assert.Equal(t, "NYC", created.Location)
		assert.Equal(t, "Eng", created.Title)

		fetched, err := theStorage.GetUserByID(ctx, *created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, fetched)

		updateResult, err := theStorage.UpdateUserByID(ctx, *created.ID, user.New("Ann", "SF", "Eng"))
		require.NoError(t, err)
		assert.Equal(t, &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, updateResult)

		updateResult, err = theStorage.UpdateUserByID(ctx, *created.ID, user.New("Ann", "SF", "Eng"))
		require.NoError(t, err)
		assert.Equal(t, &storage.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, updateResult)

		fetched, err = theStorage.GetUserByID(ctx, *created.ID)
		require.NoError(t, err)
		assert.Equal(t, "SF", fetched.Location)
		assert.Equal(t, *created.ID, *fetched.ID)

		count, err := theStorage.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		deleteResult, err := theStorage.DeleteUserByID(ctx, *created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleteResult.DeletedCount)

		deleteResult, err = theStorage.DeleteUserByID(ctx, *created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleteResult.DeletedCount)

		_, err = theStorage.GetUserByID(ctx, *created.ID)
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The jsondb.Ping() should not return error")
	})
}

func TestUpdateOfUnknownUser(t *testing.T) {
	theStorage, _ := newTestDB(t)

	result, err := theStorage.UpdateUserByID(context.Background(), primitive.NewObjectID(), user.New("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, &storage.UpdateResult{}, result)

	count, err := theStorage.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateIgnoresClientID(t *testing.T) {
	theStorage, _ := newTestDB(t)
	clientID := primitive.NewObjectID()

	created, err := theStorage.CreateUser(context.Background(), user.New("a", "b", "c").WithID(clientID))
	require.NoError(t, err)
	assert.NotEqual(t, clientID, *created.ID)
}

func TestCloseFlushesToFile(t *testing.T) {
	ctx := context.Background()
	theStorage, fileName := newTestDB(t)

	created, err := theStorage.CreateUser(ctx, user.New("Ann", "NYC", "Eng"))
	require.NoError(t, err)
	require.NoError(t, theStorage.Close())

	_, err = os.Stat(fileName)
	require.NoError(t, err)

	reopened, err := New(fileName)
	require.NoError(t, err)

	fetched, err := reopened.GetUserByID(ctx, *created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	theStorage, _ := newTestDB(t)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := theStorage.CreateUser(ctx, user.New("a", "b", "c"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), count)
}
