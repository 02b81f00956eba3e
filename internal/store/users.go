package store

import (
	"context"
	"fmt"
)

// CreateUser inserts a user. A taken username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, username string) (User, error) {
	db, err := s.conn()
	if err != nil {
		return User{}, err
	}
	return s.createUser(ctx, db, username)
}

func (s *Store) createUser(ctx context.Context, q querier, username string) (User, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO users (username, created_at) VALUES (?, "+clampedNow("users")+") RETURNING "+userColumns,
		username, s.timestamp(),
	)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapError(fmt.Sprintf("create user %q", username), err)
	}
	s.log.Debug("user created", "id", u.ID, "username", u.Username)
	return u, nil
}

// GetUser returns the user with the given id, or nil if there is none.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := getOne(row, scanUser)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get user %d", id), err)
	}
	return u, nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	return s.countUsers(ctx, db)
}

func (s *Store) countUsers(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, mapError("count users", err)
	}
	return n, nil
}
