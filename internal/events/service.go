package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"agora.events/internal/ids"
)

// Filter narrows event listings.
type Filter struct {
	// Status restricts the listing to one lifecycle state when non-empty.
	Status string
	// IncludeDeleted also returns soft-deleted events.
	IncludeDeleted bool
}

// Update carries a partial event edit. Nil fields are left untouched; status
// changes go through SetStatus instead.
type Update struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"url"`

	ApplicationStarts *time.Time `json:"application_starts"`
	ApplicationEnds   *time.Time `json:"application_ends"`
	Starts            *time.Time `json:"starts"`
	Ends              *time.Time `json:"ends"`

	Fee             *float64 `json:"fee"`
	OptionalFee     *float64 `json:"optional_fee"`
	MaxParticipants *int     `json:"max_participants"`
	Budget          *string  `json:"budget"`
	Programme       *string  `json:"programme"`

	AccommodationType     *string `json:"accommodation_type"`
	MealsPerDay           *int    `json:"meals_per_day"`
	OptionalProgramme     *string `json:"optional_programme"`
	LinkInfoTravelCountry *string `json:"link_info_travel_country"`

	Organizers *[]Organizer `json:"organizers"`
	Links      *[]Link      `json:"links"`
}

// Service defines event persistence operations.
type Service interface {
	Create(ctx context.Context, event *Event) (*Event, error)
	// Find resolves a 24-hex id or a slug to an event.
	Find(ctx context.Context, idOrSlug string) (*Event, error)
	List(ctx context.Context, filter Filter) ([]*Event, error)
	Update(ctx context.Context, id string, changes Update) (*Event, error)
	SetStatus(ctx context.Context, id, status string) (*Event, error)
	SetHeadImage(ctx context.Context, id, filename string) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Service with in-process concurrency safety. Used in
// tests and when no database is configured.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]*Event
	bySlug map[string]string // slug -> id
	now    func() time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]*Event),
		bySlug: make(map[string]string),
		now:    time.Now,
	}
}

func (s *InMemory) Create(ctx context.Context, event *Event) (*Event, error) {
	ev := event.Clone()
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Slug != "" {
		if _, taken := s.bySlug[ev.Slug]; taken {
			return nil, ErrSlugTaken
		}
	}
	ev.ID = ids.NewHex()
	ev.Status = StatusDraft
	ev.CreatedAt = s.now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	AssignLinkIDs(ev)

	s.byID[ev.ID] = ev
	if ev.Slug != "" {
		s.bySlug[ev.Slug] = ev.ID
	}
	return ev.Clone(), nil
}

func (s *InMemory) Find(ctx context.Context, idOrSlug string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, err := s.locked(idOrSlug)
	if err != nil {
		return nil, err
	}
	return ev.Clone(), nil
}

func (s *InMemory) List(ctx context.Context, filter Filter) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Event
	for _, ev := range s.byID {
		if ev.Deleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Status != "" && ev.Status != filter.Status {
			continue
		}
		out = append(out, ev.Clone())
	}
	sortByStart(out)
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, id string, changes Update) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.locked(id)
	if err != nil {
		return nil, err
	}

	updated := ev.Clone()
	ApplyUpdate(updated, changes)
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if updated.Slug != ev.Slug {
		if other, taken := s.bySlug[updated.Slug]; taken && other != ev.ID {
			return nil, ErrSlugTaken
		}
		delete(s.bySlug, ev.Slug)
		if updated.Slug != "" {
			s.bySlug[updated.Slug] = ev.ID
		}
	}
	AssignLinkIDs(updated)
	updated.UpdatedAt = s.now().UTC()

	s.byID[ev.ID] = updated
	return updated.Clone(), nil
}

func (s *InMemory) SetStatus(ctx context.Context, id, status string) (*Event, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.locked(id)
	if err != nil {
		return nil, err
	}
	ev.Status = status
	ev.UpdatedAt = s.now().UTC()
	return ev.Clone(), nil
}

func (s *InMemory) SetHeadImage(ctx context.Context, id, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.locked(id)
	if err != nil {
		return err
	}
	ev.HeadImage = filename
	ev.UpdatedAt = s.now().UTC()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.locked(id)
	if err != nil {
		return err
	}
	ev.Deleted = true
	ev.UpdatedAt = s.now().UTC()
	return nil
}

// locked resolves id-or-slug without taking the mutex; callers hold it.
func (s *InMemory) locked(idOrSlug string) (*Event, error) {
	id := idOrSlug
	if !IsHexID(idOrSlug) {
		mapped, ok := s.bySlug[idOrSlug]
		if !ok {
			return nil, ErrNotFound
		}
		id = mapped
	}
	ev, ok := s.byID[id]
	if !ok || ev.Deleted {
		return nil, ErrNotFound
	}
	return ev, nil
}

// ApplyUpdate copies every non-nil change onto the event.
func ApplyUpdate(ev *Event, changes Update) {
	if changes.Name != nil {
		ev.Name = *changes.Name
	}
	if changes.Description != nil {
		ev.Description = *changes.Description
	}
	if changes.Slug != nil {
		ev.Slug = *changes.Slug
	}
	if changes.ApplicationStarts != nil {
		ev.ApplicationStarts = *changes.ApplicationStarts
	}
	if changes.ApplicationEnds != nil {
		ev.ApplicationEnds = *changes.ApplicationEnds
	}
	if changes.Starts != nil {
		ev.Starts = *changes.Starts
	}
	if changes.Ends != nil {
		ev.Ends = *changes.Ends
	}
	if changes.Fee != nil {
		ev.Fee = *changes.Fee
	}
	if changes.OptionalFee != nil {
		ev.OptionalFee = *changes.OptionalFee
	}
	if changes.MaxParticipants != nil {
		ev.MaxParticipants = *changes.MaxParticipants
	}
	if changes.Budget != nil {
		ev.Budget = *changes.Budget
	}
	if changes.Programme != nil {
		ev.Programme = *changes.Programme
	}
	if changes.AccommodationType != nil {
		ev.AccommodationType = *changes.AccommodationType
	}
	if changes.MealsPerDay != nil {
		ev.MealsPerDay = *changes.MealsPerDay
	}
	if changes.OptionalProgramme != nil {
		ev.OptionalProgramme = *changes.OptionalProgramme
	}
	if changes.LinkInfoTravelCountry != nil {
		ev.LinkInfoTravelCountry = *changes.LinkInfoTravelCountry
	}
	if changes.Organizers != nil {
		ev.Organizers = *changes.Organizers
	}
	if changes.Links != nil {
		ev.Links = *changes.Links
	}
}

// AssignLinkIDs gives every link without an id a fresh one, keeping
// existing ids stable across edits.
func AssignLinkIDs(ev *Event) {
	for i := range ev.Links {
		if ev.Links[i].ID == "" {
			ev.Links[i].ID = ids.New()
		}
	}
}

func sortByStart(evs []*Event) {
	sort.Slice(evs, func(i, j int) bool {
		if evs[i].Starts.Equal(evs[j].Starts) {
			return evs[i].ID < evs[j].ID
		}
		return evs[i].Starts.Before(evs[j].Starts)
	})
}
