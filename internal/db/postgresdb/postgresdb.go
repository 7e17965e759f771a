// Package postgresdb provides a PostgreSQL-based implementation of the user storage.
// Users are stored one row per document in the "users" table; identifiers are
// ObjectIDs generated by the application so they look the same as with MongoDB.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/userapi/internal/db/storage"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresDB is a PostgreSQL-backed user storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, "migrations"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// CreateUser inserts a new row under a freshly generated identifier.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	created := user.New(usr.Name, usr.Location, usr.Title).WithID(primitive.NewObjectID())

	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, name, location, title) VALUES ($1, $2, $3, $4)`,
		created.HexID(),
		created.Name,
		created.Location,
		created.Title,
	)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetUserByID fetches a user by identifier.
// It returns storage.ErrUserNotFound if there is no such row.
func (db *PostgresDB) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT name, location, title FROM users WHERE id = $1`,
		id.Hex(),
	)

	result := user.New("", "", "").WithID(id)
	err := row.Scan(&result.Name, &result.Location, &result.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	return result, nil
}

// UpdateUserByID overwrites name, location and title of the matching row.
// ModifiedCount is zero when the stored values already equal the new ones.
func (db *PostgresDB) UpdateUserByID(
	ctx context.Context,
	id primitive.ObjectID,
	usr *user.User,
) (*storage.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`
			WITH target AS (
				SELECT id, name, location, title FROM users WHERE id = $1 FOR UPDATE
			), updated AS (
				UPDATE users
					SET name = $2, location = $3, title = $4
					FROM target
					WHERE users.id = target.id
						AND (target.name, target.location, target.title)
							IS DISTINCT FROM ($2::text, $3::text, $4::text)
					RETURNING users.id
			)
			SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)
		`,
		id.Hex(),
		usr.Name,
		usr.Location,
		usr.Title,
	)

	result := &storage.UpdateResult{}
	if err := row.Scan(&result.MatchedCount, &result.ModifiedCount); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteUserByID removes the matching row if there is one.
func (db *PostgresDB) DeleteUserByID(ctx context.Context, id primitive.ObjectID) (*storage.DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	execResult, err := db.database.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.Hex())
	if err != nil {
		return nil, err
	}

	deleted, err := execResult.RowsAffected()
	if err != nil {
		return nil, err
	}

	return &storage.DeleteResult{DeletedCount: deleted}, nil
}

// CountUsers returns the number of rows in the users table.
func (db *PostgresDB) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	err := db.database.Close()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
