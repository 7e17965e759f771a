// Package storage declares the contract every user storage backend
// fulfils, along with the errors and results shared between them.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/user"
)

// ErrUserNotFound is returned when no stored user matches the identifier.
var ErrUserNotFound = errors.New("no user found with specified ID")

// ErrInvalidUserID is returned when an identifier is not a valid ObjectID.
var ErrInvalidUserID = errors.New("invalid user ID")

// UpdateResult reports how many users a replace operation touched.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult reports how many users a delete operation removed.
type DeleteResult struct {
	DeletedCount int64
}

type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)

	UpdateUserByID(
		ctx context.Context,
		id primitive.ObjectID,
		usr *user.User,
	) (*UpdateResult, error)

	DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error)

	CountUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}

// ParseUserID converts the external hex form of an identifier into an ObjectID.
func ParseUserID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q: %s", ErrInvalidUserID, id, err)
	}

	return objectID, nil
}
