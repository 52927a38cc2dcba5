package userdirectory

import (
	"database/sql"
	"errors"
	"fmt"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/net/context"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	CREATE_TABLE_STATEMENT = `
	CREATE TABLE IF NOT EXISTS users (
		id         BIGINT PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT ''
	)`

	USER_INSERT_STATEMENT = `
	INSERT INTO users
		(id, username, first_name, last_name)
	VALUES
		($1, $2, $3, $4)`

	USER_SELECT_STATEMENT = `
	SELECT
		id, username, first_name, last_name
	FROM
		users
	WHERE
		id = $1`

	USER_SELECT_ALL_STATEMENT = `
	SELECT
		id, username, first_name, last_name
	FROM
		users`
)

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(
	ctx context.Context,
	driver string,
	dsn string,
) (Repository, *sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, nil, fmt.Errorf("unsupported user directory driver '%s'", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if driver == DriverSQLite {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}

	if _, err = db.ExecContext(ctx, CREATE_TABLE_STATEMENT); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	aulogging.Logger.Ctx(ctx).Info().Printf("user directory connected using driver '%s'", driver)

	return &sqlRepository{db: db}, db, nil
}

func (r *sqlRepository) Create(
	ctx context.Context,
	user User,
) error {
	_, err := r.db.ExecContext(ctx, USER_INSERT_STATEMENT, user.ID, user.Username, user.FirstName, user.LastName)
	return err
}

func (r *sqlRepository) ReadAll(
	ctx context.Context,
) (map[int64]User, error) {
	rows, err := r.db.QueryContext(ctx, USER_SELECT_ALL_STATEMENT)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make(map[int64]User)
	for rows.Next() {
		var user User
		if err = rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName); err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

func (r *sqlRepository) Read(
	ctx context.Context,
	id int64,
) (User, error) {
	var user User
	row := r.db.QueryRowContext(ctx, USER_SELECT_STATEMENT, id)
	if err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NewErrUserNotFound(id)
		}
		return User{}, err
	}
	return user, nil
}
