package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"reelist/internal/models"
)

func newTestJSONStore(t *testing.T) *JSONFileStore {
	t.Helper()
	return NewJSONFileStore(filepath.Join(t.TempDir(), "users.json"))
}

func TestJSONFileStoreFindAfterUpsert(t *testing.T) {
	s := newTestJSONStore(t)
	ctx := context.Background()

	user := models.User{
		Username:     "ada",
		PasswordHash: "hash",
		Favorites: []models.FavoriteMovie{
			{ID: "550", Title: "Fight Club", Rating: "8.4", Runtime: models.IntPtr(139), Genres: models.Genres{"Drama"}},
		},
	}

	saved, err := s.Upsert(ctx, user)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("expected version 1, got %d", saved.Version)
	}

	got, err := s.Find(ctx, "ada")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(got, saved) {
		t.Fatalf("Find mismatch:\n got  %#v\n want %#v", got, saved)
	}
}

func TestJSONFileStoreFindMissing(t *testing.T) {
	s := newTestJSONStore(t)

	_, err := s.Find(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestJSONFileStoreMalformedDocumentIsEmpty(t *testing.T) {
	s := newTestJSONStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	users, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty store, got %d users", len(users))
	}

	if _, err := s.Upsert(context.Background(), models.User{Username: "ada"}); err != nil {
		t.Fatalf("Upsert over malformed document: %v", err)
	}

	backups := backupFiles(t, s)
	if len(backups) != 1 {
		t.Fatalf("expected one backup file, got %v", backups)
	}
	if got, _ := os.ReadFile(backups[0]); string(got) != "{not json" {
		t.Fatalf("backup does not hold the original bytes: %q", got)
	}
}

func TestJSONFileStoreSkipsUndecodableRecord(t *testing.T) {
	s := newTestJSONStore(t)
	ctx := context.Background()

	original := `[
  {"username": "ada", "password_hash": "h1", "favorites": [{"id": "550", "runtime": "long"}]},
  {"username": "grace", "password_hash": "h2", "version": 3, "favorites": []}
]`
	if err := os.WriteFile(s.Path(), []byte(original), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	grace, err := s.Find(ctx, "grace")
	if err != nil {
		t.Fatalf("Find grace: %v", err)
	}
	if grace.Version != 3 {
		t.Fatalf("expected version 3, got %d", grace.Version)
	}
	if _, err := s.Find(ctx, "ada"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected undecodable record to be skipped, got %v", err)
	}
	if backups := backupFiles(t, s); len(backups) != 0 {
		t.Fatalf("reads must not write backups, got %v", backups)
	}

	if _, err := s.Upsert(ctx, models.User{Username: "bob", PasswordHash: "h3"}); err != nil {
		t.Fatalf("Upsert bob: %v", err)
	}

	users, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	if !reflect.DeepEqual(names, []string{"grace", "bob"}) {
		t.Fatalf("other accounts must survive the rewrite, got %v", names)
	}

	backups := backupFiles(t, s)
	if len(backups) != 1 {
		t.Fatalf("expected one backup file, got %v", backups)
	}
	if got, _ := os.ReadFile(backups[0]); string(got) != original {
		t.Fatalf("backup does not hold the original document")
	}

	// The rewritten document is clean, so later writes add no backups.
	if _, err := s.Upsert(ctx, models.User{Username: "carol"}); err != nil {
		t.Fatalf("Upsert carol: %v", err)
	}
	if backups := backupFiles(t, s); len(backups) != 1 {
		t.Fatalf("expected a single backup, got %v", backups)
	}
}

func backupFiles(t *testing.T, s *JSONFileStore) []string {
	t.Helper()
	matches, err := filepath.Glob(s.Path() + ".*.bak")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestJSONFileStoreVersionConflict(t *testing.T) {
	s := newTestJSONStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, models.User{Username: "ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	tests := []struct {
		name    string
		version int64
		wantErr error
	}{
		{name: "duplicate insert", version: 0, wantErr: ErrVersionConflict},
		{name: "future version", version: 5, wantErr: ErrVersionConflict},
		{name: "current version", version: 1, wantErr: nil},
		{name: "stale version", version: 1, wantErr: ErrVersionConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Upsert(ctx, models.User{Username: "ada", Version: tc.version})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestJSONFileStoreReadsLegacyDocument(t *testing.T) {
	s := newTestJSONStore(t)
	legacy := `[{"username": "rList", "password": "pw", "favorites": [{"id": 13, "title": "Forrest Gump", "genres": "Comedy, Drama"}]}]`
	if err := os.WriteFile(s.Path(), []byte(legacy), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	u, err := s.Find(context.Background(), "rList")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.LegacyPassword != "pw" || u.Version != 1 {
		t.Fatalf("unexpected legacy fields: %#v", u)
	}
	if len(u.Favorites) != 1 || u.Favorites[0].ID != "13" {
		t.Fatalf("unexpected favorites: %#v", u.Favorites)
	}
	if !reflect.DeepEqual(u.Favorites[0].Genres, models.Genres{"Comedy", "Drama"}) {
		t.Fatalf("unexpected genres: %#v", u.Favorites[0].Genres)
	}

	if _, err := s.Upsert(context.Background(), models.User{Username: "rList"}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected insert over legacy record to conflict, got %v", err)
	}
}

func TestUpdateNoLostUpdates(t *testing.T) {
	s := newTestJSONStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, models.User{Username: "ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, models.User{Username: "grace"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		id := models.MovieID(string(rune('a' + i)))
		for _, name := range []string{"ada", "grace"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := Update(ctx, s, name, func(u *models.User) error {
					u.Favorites = append(u.Favorites, models.FavoriteMovie{ID: id})
					return nil
				})
				if err != nil {
					errs <- err
				}
			}(name)
		}
	}
	wg.Wait()
	close(errs)

	// Each failed attempt means another writer committed, so four writers fit in the retry budget.
	for err := range errs {
		t.Fatalf("Update: %v", err)
	}

	for _, name := range []string{"ada", "grace"} {
		u, err := s.Find(ctx, name)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if len(u.Favorites) != writers {
			t.Fatalf("%s: expected %d favorites, got %d", name, writers, len(u.Favorites))
		}
	}
}

type conflictOnceStore struct {
	UserStore
	conflicts int
	upserts   int
}

func (s *conflictOnceStore) Upsert(ctx context.Context, u models.User) (models.User, error) {
	s.upserts++
	if s.conflicts > 0 {
		s.conflicts--
		return models.User{}, ErrVersionConflict
	}
	return s.UserStore.Upsert(ctx, u)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	base := newTestJSONStore(t)
	ctx := context.Background()
	if _, err := base.Upsert(ctx, models.User{Username: "ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	s := &conflictOnceStore{UserStore: base, conflicts: 2}
	calls := 0
	saved, err := Update(ctx, s, "ada", func(u *models.User) error {
		calls++
		u.PasswordHash = "new"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if calls != 3 || s.upserts != 3 {
		t.Fatalf("expected 3 attempts, got fn=%d upserts=%d", calls, s.upserts)
	}
	if saved.PasswordHash != "new" || saved.Version != 2 {
		t.Fatalf("unexpected saved user: %#v", saved)
	}
}

func TestUpdatePropagatesCallbackError(t *testing.T) {
	s := newTestJSONStore(t)
	ctx := context.Background()
	if _, err := s.Upsert(ctx, models.User{Username: "ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	boom := errors.New("boom")
	_, err := Update(ctx, s, "ada", func(*models.User) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	_, err = Update(ctx, s, "missing", func(*models.User) error { return nil })
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
