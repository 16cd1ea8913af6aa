package events

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Event lifecycle states.
const (
	StatusDraft      = "draft"
	StatusRequesting = "requesting"
	StatusPublished  = "published"
)

// Event kinds accepted on creation.
var Types = []string{"training", "nwm", "conference", "cultural"}

var (
	ErrNotFound      = errors.New("events: not found")
	ErrInvalidInput  = errors.New("events: invalid input")
	ErrInvalidStatus = errors.New("events: invalid status")
	ErrSlugTaken     = errors.New("events: slug already in use")
)

// hexID matches the 24-character event primary key. Anything else passed to
// a lookup is treated as a slug.
var hexID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsHexID reports whether raw is a well-formed event id.
func IsHexID(raw string) bool {
	return hexID.MatchString(raw)
}

// Visibility restricts who may see an event sub-resource. A link is visible
// when any of the three conditions matches the requesting user.
type Visibility struct {
	Users   []string `json:"users"`
	Roles   []string `json:"roles"`
	Special []string `json:"special"`
}

// Link is an event sub-resource subject to visibility filtering.
type Link struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

// Organizer ties a core user to an event.
type Organizer struct {
	UserID    int64    `json:"user_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Special   []string `json:"special"`
}

// OrganizingBody is the local body hosting the event.
type OrganizingBody struct {
	BodyID   int64  `json:"body_id"`
	BodyName string `json:"body_name"`
}

// Event is the aggregate managed by this service.
type Event struct {
	ID          string `json:"id"`
	Slug        string `json:"url,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Status      string `json:"status"`

	ApplicationStarts time.Time `json:"application_starts"`
	ApplicationEnds   time.Time `json:"application_ends"`
	Starts            time.Time `json:"starts"`
	Ends              time.Time `json:"ends"`

	Fee             float64 `json:"fee"`
	OptionalFee     float64 `json:"optional_fee"`
	MaxParticipants int     `json:"max_participants"`
	Budget          string  `json:"budget,omitempty"`
	Programme       string  `json:"programme,omitempty"`

	AccommodationType     string `json:"accommodation_type,omitempty"`
	MealsPerDay           int    `json:"meals_per_day"`
	OptionalProgramme     string `json:"optional_programme,omitempty"`
	LinkInfoTravelCountry string `json:"link_info_travel_country,omitempty"`

	HeadImage string `json:"head_image,omitempty"`

	OrganizingBodies []OrganizingBody `json:"organizing_bodies"`
	Organizers       []Organizer      `json:"organizers"`
	Links            []Link           `json:"links"`

	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOrganizer reports whether the given core user organizes this event.
func (e *Event) IsOrganizer(userID int64) bool {
	for _, org := range e.Organizers {
		if org.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores can hand out mutation-safe values.
func (e *Event) Clone() *Event {
	out := *e
	out.OrganizingBodies = append([]OrganizingBody(nil), e.OrganizingBodies...)
	out.Organizers = make([]Organizer, len(e.Organizers))
	for i, org := range e.Organizers {
		out.Organizers[i] = org
		out.Organizers[i].Special = append([]string(nil), org.Special...)
	}
	out.Links = make([]Link, len(e.Links))
	for i, link := range e.Links {
		out.Links[i] = link
		out.Links[i].Visibility = Visibility{
			Users:   append([]string(nil), link.Visibility.Users...),
			Roles:   append([]string(nil), link.Visibility.Roles...),
			Special: append([]string(nil), link.Visibility.Special...),
		}
	}
	return &out
}

// Normalize fills collection defaults and trims user-supplied text fields.
func (e *Event) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Slug = strings.TrimSpace(e.Slug)
	if e.OrganizingBodies == nil {
		e.OrganizingBodies = []OrganizingBody{}
	}
	if e.Organizers == nil {
		e.Organizers = []Organizer{}
	}
	if e.Links == nil {
		e.Links = []Link{}
	}
	if e.Status == "" {
		e.Status = StatusDraft
	}
}

// Validate checks the fields required on creation.
func (e *Event) Validate() error {
	if e.Name == "" {
		return errInvalid("name is required")
	}
	if e.Description == "" {
		return errInvalid("description is required")
	}
	if !validType(e.Type) {
		return errInvalid("unknown event type")
	}
	if e.Slug != "" && IsHexID(e.Slug) {
		return errInvalid("slug must not look like an event id")
	}
	if !e.Starts.IsZero() && !e.Ends.IsZero() && e.Ends.Before(e.Starts) {
		return errInvalid("event ends before it starts")
	}
	if !e.ApplicationStarts.IsZero() && !e.ApplicationEnds.IsZero() && e.ApplicationEnds.Before(e.ApplicationStarts) {
		return errInvalid("application period ends before it starts")
	}
	if e.Fee < 0 || e.OptionalFee < 0 {
		return errInvalid("fees must not be negative")
	}
	if e.MaxParticipants < 0 {
		return errInvalid("max_participants must not be negative")
	}
	return nil
}

func validType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusRequesting, StatusPublished:
		return true
	}
	return false
}
