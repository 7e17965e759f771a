// Package mockstorage provides a testify-based mock implementation
// of the user storage. It is used for unit testing the service and
// the HTTP handlers by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

// StorageMock is a testify mock implementing storage.Storage.
type StorageMock struct {
	mock.Mock
}

var _ storage.Storage = (*StorageMock)(nil)

// CreateUser mocks inserting a user.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*user.User)
	return created, args.Error(1)
}

// GetUserByID mocks fetching a user.
func (m *StorageMock) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	args := m.Called(ctx, id)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// UpdateUserByID mocks replacing a user.
func (m *StorageMock) UpdateUserByID(
	ctx context.Context,
	id primitive.ObjectID,
	usr *user.User,
) (*storage.UpdateResult, error) {
	args := m.Called(ctx, id, usr)
	result, _ := args.Get(0).(*storage.UpdateResult)
	return result, args.Error(1)
}

// DeleteUserByID mocks deleting a user.
func (m *StorageMock) DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*storage.DeleteResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*storage.DeleteResult)
	return result, args.Error(1)
}

// CountUsers mocks counting stored users.
func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
