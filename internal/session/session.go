// Package session holds the client's notion of "who is logged in".
//
// A Store owns the bearer token and the authenticated user. It is created
// once at startup, initialized from a one-time launch URL or the persisted
// token, and resolved against the API with a single "who am I" request that
// races a safety timeout. Every failure collapses to StatusAnonymous; callers
// never see resolution errors.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is the resolution state of a session.
type Status string

const (
	StatusResolving     Status = "resolving"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// UserID is the server-side user identifier. The API emits object-id strings
// but numeric ids are accepted as well.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// Timestamp is a point in time as the API writes it. The server emits naive
// UTC datetimes ("2024-05-01T12:00:00.123456"); RFC 3339 is accepted too.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// User is the authenticated account as returned by GET /api/auth/me.
type User struct {
	ID             UserID    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      Timestamp `json:"created_at,omitzero"`
}

// Session is a point-in-time copy of the store's state.
type Session struct {
	Token  string
	User   *User
	Status Status
}

// IsAuthenticated reports whether a validated user is present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}
