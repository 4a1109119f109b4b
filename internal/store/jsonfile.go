package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reelist/internal/models"
)

// JSONFileStore keeps every user in a single JSON array on disk. Reads load
// the whole document and writes replace it atomically; a mutex makes this
// process the single writer.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileStore returns a store backed by the document at path. The file
// is created on the first write.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: filepath.Clean(path)}
}

// Path returns the location of the backing document.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Find returns the user with the given username.
func (s *JSONFileStore) Find(ctx context.Context, username string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return models.User{}, err
	}
	for i := range doc.users {
		if doc.users[i].Username == username {
			return doc.users[i], nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// Upsert inserts or replaces the user and rewrites the document.
func (s *JSONFileStore) Upsert(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if user.Username == "" {
		return models.User{}, errors.New("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return models.User{}, err
	}
	users := doc.users

	idx := -1
	for i := range users {
		if users[i].Username == user.Username {
			idx = i
			break
		}
	}

	var stored int64
	if idx >= 0 {
		stored = users[idx].Version
	}
	if user.Version != stored {
		return models.User{}, ErrVersionConflict
	}

	saved := user.Clone()
	saved.Version = stored + 1
	if saved.Favorites == nil {
		saved.Favorites = []models.FavoriteMovie{}
	}

	if idx >= 0 {
		users[idx] = saved
	} else {
		users = append(users, saved)
	}

	if err := s.save(doc, users); err != nil {
		return models.User{}, err
	}
	return saved.Clone(), nil
}

// List returns every user in document order.
func (s *JSONFileStore) List(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.users, nil
}

// document is one read of the backing file. raw is kept when some of it
// could not be decoded so the next write can back it up first.
type document struct {
	users   []models.User
	raw     []byte
	damaged bool
}

// load reads the document. A missing or unparseable document reads as an
// empty store; individual records that fail to decode are skipped.
func (s *JSONFileStore) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{users: []models.User{}}, nil
		}
		return document{}, fmt.Errorf("read users document: %w", err)
	}

	doc := document{users: []models.User{}, raw: data}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("users document is malformed, treating store as empty")
		doc.damaged = true
		return doc, nil
	}

	for i, rec := range records {
		var u models.User
		if err := json.Unmarshal(rec, &u); err != nil {
			log.Error().Err(err).Str("path", s.path).Int("index", i).Msg("skipping undecodable user record")
			doc.damaged = true
			continue
		}
		// Records written before versioning existed count as version 1, so an
		// insert (version 0) can never overwrite them.
		if u.Version < 1 {
			u.Version = 1
		}
		doc.users = append(doc.users, u)
	}
	return doc, nil
}

// save writes users over the document read as doc. A damaged document is
// copied to a timestamped .bak file first; if that fails nothing is written.
func (s *JSONFileStore) save(doc document, users []models.User) error {
	if doc.damaged {
		backup := fmt.Sprintf("%s.%s.bak", s.path, time.Now().UTC().Format("20060102T150405.000000000"))
		if err := writeFileAtomic(backup, doc.raw); err != nil {
			return fmt.Errorf("back up damaged users document: %w", err)
		}
		log.Warn().Str("path", s.path).Str("backup", backup).Msg("backed up damaged users document before rewriting it")
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users document: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write users document: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, so readers never observe a partially written document.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
