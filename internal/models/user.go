package models

// User is a registered account together with the movies it has saved.
type User struct {
	Username     string          `json:"username"`
	PasswordHash string          `json:"password_hash,omitempty"`
	Favorites    []FavoriteMovie `json:"favorites"`
	Version      int64           `json:"version"`

	// LegacyPassword is the plaintext password found in documents written
	// before hashing was introduced. It is cleared on the first successful login.
	LegacyPassword string `json:"password,omitempty"`
}

// FavoriteIndex returns the position of the favorite with the given id, or -1.
func (u *User) FavoriteIndex(id MovieID) int {
	for i := range u.Favorites {
		if u.Favorites[i].ID == id {
			return i
		}
	}
	return -1
}

// HasFavorite reports whether the movie is already saved.
func (u *User) HasFavorite(id MovieID) bool {
	return u.FavoriteIndex(id) >= 0
}

// FavoriteIDs lists the saved movie ids in insertion order.
func (u *User) FavoriteIDs() []MovieID {
	ids := make([]MovieID, 0, len(u.Favorites))
	for _, f := range u.Favorites {
		ids = append(ids, f.ID)
	}
	return ids
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (u *User) Clone() User {
	clone := *u
	if u.Favorites != nil {
		clone.Favorites = make([]FavoriteMovie, len(u.Favorites))
		for i, f := range u.Favorites {
			clone.Favorites[i] = f.Clone()
		}
	}
	return clone
}
