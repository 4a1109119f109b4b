package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MovieID is an external movie identifier. Documents written by older
// clients store it either as a JSON number or a string; both decode to the
// same decimal text so membership checks compare like for like.
type MovieID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *MovieID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("movie id: %w", err)
		}
		*id = MovieID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("movie id: %w", err)
	}
	*id = MovieID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (id MovieID) String() string { return string(id) }

// Rating is a source rating that may arrive as a number, a numeric string,
// free text or null. The raw text is kept; Float gives the numeric view.
type Rating string

// UnmarshalJSON accepts a JSON string, number or null.
func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("rating: %w", err)
		}
		*r = Rating(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("rating: %w", err)
		}
		*r = Rating(n.String())
	}
	return nil
}

// Float returns the numeric rating, or 0 when missing or unparseable.
func (r Rating) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(r)), 64)
	if err != nil {
		return 0
	}
	return v
}


// Genres is a list of genre names. The legacy encoding is a single
// comma-separated string ("Drama, Action"), which is split and trimmed on
// decode. It is always encoded as an array.
type Genres []string

// UnmarshalJSON accepts an array of strings, a comma-separated string or null.
func (g *Genres) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("genres: %w", err)
		}
		*g = ParseGenres(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("genres: %w", err)
	}
	out := make(Genres, 0, len(list))
	for _, name := range list {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	*g = out
	return nil
}

// ParseGenres splits the legacy comma-separated encoding.
func ParseGenres(s string) Genres {
	out := Genres{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
