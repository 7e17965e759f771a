// Package service sits between the HTTP handlers and the storage: it parses
// identifiers, builds the records to persist and classifies storage results.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/models"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)

	UpdateUserByID(
		ctx context.Context,
		id primitive.ObjectID,
		usr *user.User,
	) (*storage.UpdateResult, error)

	DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*storage.DeleteResult, error)

	CountUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type userStorage interface {
	userKeeper
	pinger
}

var (
	ErrUserNotFound  = storage.ErrUserNotFound
	ErrInvalidUserID = storage.ErrInvalidUserID
)

// Outcome classifies the result of a user operation.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeInvalidID
	OutcomeAccessError
)

// Classify maps an operation error to its Outcome. A nil error is OutcomeFound.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrInvalidUserID):
		return OutcomeInvalidID
	case errors.Is(err, ErrUserNotFound):
		return OutcomeNotFound
	default:
		return OutcomeAccessError
	}
}

type Service struct {
	db userStorage
}

func New(db userStorage) *Service {
	return &Service{
		db: db,
	}
}

// CreateUser persists a new user built from the request; the storage assigns the identifier.
func (s *Service) CreateUser(ctx context.Context, request models.UserRequest) (*user.User, error) {
	return s.db.CreateUser(ctx, user.New(request.Name, request.Location, request.Title))
}

// GetUser returns the user with the given external identifier.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	objectID, err := storage.ParseUserID(id)
	if err != nil {
		return nil, err
	}

	return s.db.GetUserByID(ctx, objectID)
}

// UpdateUser replaces name, location and title of the user and returns the
// stored record as read back after the update. ErrUserNotFound is returned
// when no user has the identifier.
func (s *Service) UpdateUser(ctx context.Context, id string, request models.UserRequest) (*user.User, error) {
	objectID, err := storage.ParseUserID(id)
	if err != nil {
		return nil, err
	}

	replacement := user.New(request.Name, request.Location, request.Title).WithID(objectID)

	result, err := s.db.UpdateUserByID(ctx, objectID, replacement)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount != 1 {
		return nil, ErrUserNotFound
	}

	updated, err := s.db.GetUserByID(ctx, objectID)
	if err != nil {
		// The user matched a moment ago, so any failure here is a server-side one.
		return nil, fmt.Errorf("reading user %s back after update: %v", id, err)
	}

	return updated, nil
}

// DeleteUser removes the user. ErrUserNotFound is returned when no user has the identifier.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	objectID, err := storage.ParseUserID(id)
	if err != nil {
		return err
	}

	result, err := s.db.DeleteUserByID(ctx, objectID)
	if err != nil {
		return err
	}
	if result.DeletedCount != 1 {
		return ErrUserNotFound
	}

	return nil
}

// GetInternalStats reports the number of stored users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.CountUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{Users: users}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
