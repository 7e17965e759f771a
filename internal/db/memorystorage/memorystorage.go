package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/userapi/internal/db/jsondb"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

// MemoryStorage keeps users in process memory only. Nothing survives a restart.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users: map[string]user.User{},
			},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
