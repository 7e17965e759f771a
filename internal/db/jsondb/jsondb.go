// Package jsondb provides a file-backed user storage. The whole data set
// is kept in memory and flushed to a JSON file on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk layout of the database file.
// Users are keyed by the hex form of their identifier.
type CacheStruct struct {
	Users map[string]user.User
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

// New opens the database file, creating an empty one if it does not exist.
func New(fileName string) (*JSONDB, error) {
	simpleJSONDB := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(simpleJSONDB.fileName, &simpleJSONDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(simpleJSONDB.fileName, &simpleJSONDB.Cache)
		if err != nil {
			return nil, err
		}
	}

	if simpleJSONDB.Cache.Users == nil {
		simpleJSONDB.Cache.Users = map[string]user.User{}
	}

	return &simpleJSONDB, nil
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id := primitive.NewObjectID()
	for {
		if _, exists := db.Cache.Users[id.Hex()]; !exists {
			break
		}
		id = primitive.NewObjectID()
	}

	created := usr.WithID(id)
	db.Cache.Users[id.Hex()] = *created

	return created, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[id.Hex()]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	return &usr, nil
}

func (db *JSONDB) UpdateUserByID(
	ctx context.Context,
	id primitive.ObjectID,
	usr *user.User,
) (*storage.UpdateResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, found := db.Cache.Users[id.Hex()]
	if !found {
		return &storage.UpdateResult{}, nil
	}

	replacement := usr.WithID(id)
	result := &storage.UpdateResult{MatchedCount: 1}
	if replacement.Name != existing.Name ||
		replacement.Location != existing.Location ||
		replacement.Title != existing.Title {
		result.ModifiedCount = 1
	}
	db.Cache.Users[id.Hex()] = *replacement

	return result, nil
}

func (db *JSONDB) DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*storage.DeleteResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[id.Hex()]; !found {
		return &storage.DeleteResult{}, nil
	}
	delete(db.Cache.Users, id.Hex())

	return &storage.DeleteResult{DeletedCount: 1}, nil
}

func (db *JSONDB) CountUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the data set to the database file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	err := writeToJSONFile(db.fileName, db.Cache)
	if err != nil {
		return err
	}

	return nil
}
