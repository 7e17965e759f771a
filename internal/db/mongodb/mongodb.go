// Package mongodb provides the MongoDB-backed implementation of the user storage.
// Users live in the "users" collection of the configured database, one document
// per user, keyed by a store-generated ObjectID.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

// UsersCollection is the name of the collection holding user documents.
const UsersCollection = "users"

// MongoDB is a storage backed by a MongoDB client. The client pools
// connections internally and is safe for concurrent use.
type MongoDB struct {
	client            *mongo.Client
	users             *mongo.Collection
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops the users collection right after connecting.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to MongoDB at the given URI and verifies the connection
// with a ping before returning.
func New(
	ctx context.Context,
	uri string,
	databaseName string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*MongoDB, error) {
	initOpts := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(initOpts)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(
		connectCtx,
		options.Client().
			ApplyURI(uri).
			SetConnectTimeout(connectionTimeout),
	)
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/mongodb/mongodb.go/New(): error while `mongo.Connect()` calling: %w",
				err,
			)
	}

	result := &MongoDB{
		client:            client,
		users:             client.Database(databaseName).Collection(UsersCollection),
		connectionTimeout: connectionTimeout,
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil,
			fmt.Errorf(
				"in internal/db/mongodb/mongodb.go/New(): error while `client.Ping()` calling: %w",
				err,
			)
	}

	if initOpts.DBPreReset {
		if err := result.users.Drop(connectCtx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/mongodb/mongodb.go/New(): error while `users.Drop()` calling: %w",
					err,
				)
		}
	}

	return result, nil
}

// CreateUser inserts a new document and returns the user with the identifier
// MongoDB assigned to it. Any identifier carried by usr is dropped.
func (db *MongoDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	newUser := user.New(usr.Name, usr.Location, usr.Title)

	insertResult, err := db.users.InsertOne(ctx, newUser)
	if err != nil {
		return nil, err
	}

	id, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T of the inserted ID", insertResult.InsertedID)
	}

	return newUser.WithID(id), nil
}

// GetUserByID fetches a single user. It returns storage.ErrUserNotFound
// when no document has the given identifier.
func (db *MongoDB) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	var result user.User
	err := db.users.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return &result, nil
}

// UpdateUserByID overwrites name, location and title of the matching document.
// The identifier on usr is ignored.
func (db *MongoDB) UpdateUserByID(
	ctx context.Context,
	id primitive.ObjectID,
	usr *user.User,
) (*storage.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"name":     usr.Name,
			"location": usr.Location,
			"title":    usr.Title,
		},
	}

	updateResult, err := db.users.UpdateByID(ctx, id, update)
	if err != nil {
		return nil, err
	}

	return &storage.UpdateResult{
		MatchedCount:  updateResult.MatchedCount,
		ModifiedCount: updateResult.ModifiedCount,
	}, nil
}

// DeleteUserByID removes the matching document if there is one.
func (db *MongoDB) DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*storage.DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	deleteResult, err := db.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	return &storage.DeleteResult{DeletedCount: deleteResult.DeletedCount}, nil
}

// CountUsers returns the number of documents in the users collection.
func (db *MongoDB) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.users.CountDocuments(ctx, bson.D{})
}

// Ping verifies connectivity with the primary within the configured timeout.
func (db *MongoDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client and releases its pooled connections.
func (db *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(ctx)
}
