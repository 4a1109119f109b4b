package store

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"reelist/internal/models"
)

var favoriteColumns = []string{
	"username", "movie_id", "title", "poster_url", "release_date", "rating",
	"director", "runtime", "genres", "imdb_id", "imdb_rating",
}

func TestPostgresFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT username, password_hash, version
			FROM users
			WHERE username = $1
		`)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "version"}).AddRow("ada", "hash", int64(3)))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM favorites`)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows(favoriteColumns).
			AddRow("ada", "550", "Fight Club", "http://img/550", "1999-10-15", "8.4", "David Fincher", int64(139), "{Drama,Thriller}", "tt0137523", 8.8).
			AddRow("ada", "13", "Forrest Gump", "", "", "", "", nil, nil, "", nil))
	mock.ExpectCommit()

	got, err := s.Find(context.Background(), "ada")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}

	if got.Version != 3 || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user row: %#v", got)
	}
	if len(got.Favorites) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(got.Favorites))
	}

	first := got.Favorites[0]
	if first.Runtime == nil || *first.Runtime != 139 {
		t.Fatalf("expected runtime 139, got %v", first.Runtime)
	}
	if !reflect.DeepEqual(first.Genres, models.Genres{"Drama", "Thriller"}) {
		t.Fatalf("unexpected genres: %#v", first.Genres)
	}
	if first.IMDbRating == nil || *first.IMDbRating != 8.8 {
		t.Fatalf("expected imdb rating 8.8, got %v", first.IMDbRating)
	}

	second := got.Favorites[1]
	if second.Runtime != nil || second.Genres != nil || second.IMDbRating != nil {
		t.Fatalf("expected missing details to stay nil, got %#v", second)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "version"}))
	mock.ExpectRollback()

	if _, err := s.Find(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpsertInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO users (username, password_hash, version)
		VALUES ($1, $2, 1)
	`)).
		WithArgs("ada", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM favorites`)).
		WithArgs("ada").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO favorites`)).
		WithArgs("ada", 0, "550", "Fight Club", "", "1999-10-15", "8.4", "", int64(139), sqlmock.AnyArg(), "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := models.User{
		Username:       "ada",
		PasswordHash:   "hash",
		LegacyPassword: "plain",
		Favorites: []models.FavoriteMovie{
			{ID: "550", Title: "Fight Club", ReleaseDate: "1999-10-15", Rating: "8.4", Runtime: models.IntPtr(139), Genres: models.Genres{"Drama"}},
		},
	}

	saved, err := s.Upsert(context.Background(), user)
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("expected version 1, got %d", saved.Version)
	}
	if saved.LegacyPassword != "" {
		t.Fatalf("expected legacy password to be dropped")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpsertDuplicateInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("ada", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err = s.Upsert(context.Background(), models.User{Username: "ada", PasswordHash: "hash"})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpsertStaleVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE users
		SET password_hash = $2, version = version + 1
		WHERE username = $1 AND version = $3
	`)).
		WithArgs("ada", "hash", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = s.Upsert(context.Background(), models.User{Username: "ada", PasswordHash: "hash", Version: 2})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "version"}).
			AddRow("ada", "h1", int64(1)).
			AddRow("grace", "h2", int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM favorites`)).
		WillReturnRows(sqlmock.NewRows(favoriteColumns).
			AddRow("grace", "13", "Forrest Gump", "", "", "8.5", "", nil, "{}", "", nil))
	mock.ExpectCommit()

	users, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if len(users[0].Favorites) != 0 || users[0].Favorites == nil {
		t.Fatalf("expected empty non-nil favorites for ada, got %#v", users[0].Favorites)
	}
	if len(users[1].Favorites) != 1 || users[1].Favorites[0].ID != "13" {
		t.Fatalf("unexpected favorites for grace: %#v", users[1].Favorites)
	}
	if users[1].Favorites[0].Genres == nil || len(users[1].Favorites[0].Genres) != 0 {
		t.Fatalf("expected empty genres, got %#v", users[1].Favorites[0].Genres)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresFindFavoritesErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "version"}).AddRow("ada", "hash", int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM favorites`)).
		WithArgs("ada").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := s.Find(context.Background(), "ada"); err == nil {
		t.Fatalf("expected error when favorites cannot be read")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
