package store

import (
	"context"
	"errors"

	"reelist/internal/models"
)

var (
	// ErrUserNotFound signals that no user has the requested username.
	ErrUserNotFound = errors.New("user not found")
	// ErrVersionConflict signals that the stored user changed since it was read.
	ErrVersionConflict = errors.New("user was modified concurrently")
)

// UserStore persists users keyed by username.
//
// Upsert only succeeds when user.Version matches the stored version (0 for a
// user that does not exist yet); the returned record carries the new version.
type UserStore interface {
	Find(ctx context.Context, username string) (models.User, error)
	Upsert(ctx context.Context, user models.User) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// Update runs a read-modify-write cycle against st, retrying when another
// writer got there first. fn receives a private copy of the current record.
func Update(ctx context.Context, st UserStore, username string, fn func(*models.User) error) (models.User, error) {
	const maxAttempts = 5

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.User{}, err
		}

		user, err := st.Find(ctx, username)
		if err != nil {
			return models.User{}, err
		}

		if err := fn(&user); err != nil {
			return models.User{}, err
		}

		saved, err := st.Upsert(ctx, user)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return models.User{}, err
		}
		lastErr = err
	}
	return models.User{}, lastErr
}
