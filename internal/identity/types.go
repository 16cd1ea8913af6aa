package identity

import (
	"encoding/json"
	"time"
)

// Circle is an organizational membership attached to a user in the core
// service. Board membership is derived from the parent circle id.
type Circle struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
}

// UserRecord is the canonical authenticated identity. It is produced once at
// the provider boundary with every optional field defaulted, so downstream
// consumers never deal with missing collections.
type UserRecord struct {
	ID         int64    `json:"id"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Superadmin bool     `json:"is_superadmin"`
	Circles    []Circle `json:"circles"`
	Special    []string `json:"special"`
}

// Clone returns a deep copy safe to hand to background work.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	out := *u
	out.Circles = make([]Circle, len(u.Circles))
	copy(out.Circles, u.Circles)
	out.Special = make([]string, len(u.Special))
	copy(out.Special, u.Special)
	return &out
}

// CachedIdentity is a durable token-to-user mapping. Token is the unique
// lookup key; ForeignID (the user's id in the core service) is the
// de-duplication key when a record is refreshed.
type CachedIdentity struct {
	Token     string
	ForeignID int64
	User      *UserRecord
	CachedAt  time.Time
}

// transformUser converts the raw core payload into a canonical UserRecord.
// All absent collections become empty, never nil.
func transformUser(data json.RawMessage) (*UserRecord, error) {
	var payload struct {
		ID         int64    `json:"id"`
		FirstName  string   `json:"first_name"`
		LastName   string   `json:"last_name"`
		Superadmin bool     `json:"is_superadmin"`
		Circles    []Circle `json:"circles"`
		Special    []string `json:"special"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	user := &UserRecord{
		ID:         payload.ID,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Superadmin: payload.Superadmin,
		Circles:    payload.Circles,
		Special:    payload.Special,
	}
	if user.Circles == nil {
		user.Circles = []Circle{}
	}
	if user.Special == nil {
		user.Special = []string{}
	}
	return user, nil
}
