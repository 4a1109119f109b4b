package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"reelist/internal/models"
)

// PostgresStore persists users and their favorites in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres sets up a PostgresStore using the provided database handle.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Find returns the user with the given username. The user row and its
// favorites are read from one snapshot.
func (s *PostgresStore) Find(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.inSnapshot(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT username, password_hash, version
			FROM users
			WHERE username = $1
		`, username).Scan(&user.Username, &user.PasswordHash, &user.Version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lookup user: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT username, movie_id, title, poster_url, release_date, rating, director, runtime, genres, imdb_id, imdb_rating
			FROM favorites
			WHERE username = $1
			ORDER BY position ASC
		`, username)
		if err != nil {
			return fmt.Errorf("select favorites: %w", err)
		}
		defer rows.Close()

		grouped, err := scanFavorites(rows)
		if err != nil {
			return err
		}
		user.Favorites = grouped[username]
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	if user.Favorites == nil {
		user.Favorites = []models.FavoriteMovie{}
	}
	return user, nil
}

// inSnapshot runs fn in a read-only repeatable-read transaction.
func (s *PostgresStore) inSnapshot(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit read tx: %w", err)
	}
	tx = nil
	return nil
}

// Upsert inserts or replaces the user and all of its favorites in one
// transaction, bumping the version.
func (s *PostgresStore) Upsert(ctx context.Context, user models.User) (models.User, error) {
	if user.Username == "" {
		return models.User{}, errors.New("username is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if user.Version == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, password_hash, version)
			VALUES ($1, $2, 1)
		`, user.Username, user.PasswordHash); err != nil {
			if isUniqueViolation(err) {
				return models.User{}, ErrVersionConflict
			}
			return models.User{}, fmt.Errorf("insert user: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $2, version = version + 1
			WHERE username = $1 AND version = $3
		`, user.Username, user.PasswordHash, user.Version)
		if err != nil {
			return models.User{}, fmt.Errorf("update user: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return models.User{}, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return models.User{}, ErrVersionConflict
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE username = $1
	`, user.Username); err != nil {
		return models.User{}, fmt.Errorf("delete favorites: %w", err)
	}

	for i, f := range user.Favorites {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO favorites (username, position, movie_id, title, poster_url, release_date, rating, director, runtime, genres, imdb_id, imdb_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, user.Username, i, string(f.ID), f.Title, f.PosterURL, f.ReleaseDate, string(f.Rating), f.Director,
			nullInt(f.Runtime), pq.Array([]string(f.Genres)), f.IMDbID, nullFloat(f.IMDbRating)); err != nil {
			return models.User{}, fmt.Errorf("insert favorite %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	saved := user.Clone()
	saved.Version = user.Version + 1
	saved.LegacyPassword = ""
	if saved.Favorites == nil {
		saved.Favorites = []models.FavoriteMovie{}
	}
	return saved, nil
}

// List returns every user ordered by username.
func (s *PostgresStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.inSnapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT username, password_hash, version
			FROM users
			ORDER BY username ASC
		`)
		if err != nil {
			return fmt.Errorf("select users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Version); err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			u.Favorites = []models.FavoriteMovie{}
			users = append(users, u)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate users: %w", err)
		}
		_ = rows.Close()

		favRows, err := tx.QueryContext(ctx, `
			SELECT username, movie_id, title, poster_url, release_date, rating, director, runtime, genres, imdb_id, imdb_rating
			FROM favorites
			ORDER BY username ASC, position ASC
		`)
		if err != nil {
			return fmt.Errorf("select favorites: %w", err)
		}
		defer favRows.Close()

		grouped, err := scanFavorites(favRows)
		if err != nil {
			return err
		}
		for i := range users {
			if favs, ok := grouped[users[i].Username]; ok {
				users[i].Favorites = favs
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func scanFavorites(rows *sql.Rows) (map[string][]models.FavoriteMovie, error) {
	grouped := make(map[string][]models.FavoriteMovie)
	for rows.Next() {
		var (
			username   string
			f          models.FavoriteMovie
			movieID    string
			rating     string
			runtime    sql.NullInt32
			genres     []string
			imdbRating sql.NullFloat64
		)
		if err := rows.Scan(&username, &movieID, &f.Title, &f.PosterURL, &f.ReleaseDate, &rating, &f.Director,
			&runtime, pq.Array(&genres), &f.IMDbID, &imdbRating); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.ID = models.MovieID(movieID)
		f.Rating = models.Rating(rating)
		if runtime.Valid {
			f.Runtime = models.IntPtr(int(runtime.Int32))
		}
		if genres != nil {
			f.Genres = models.Genres(genres)
		}
		if imdbRating.Valid {
			f.IMDbRating = models.FloatPtr(imdbRating.Float64)
		}
		grouped[username] = append(grouped[username], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return grouped, nil
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
