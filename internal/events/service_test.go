package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestEvent builds a valid event and applies the given mutations, keeping
// individual tests focused on the field under test.
func newTestEvent(mutate ...func(*Event)) *Event {
	starts := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ev := &Event{
		Name:              "Autumn Network Meeting",
		Description:       "Three days of workshops",
		Type:              "nwm",
		ApplicationStarts: starts.AddDate(0, -2, 0),
		ApplicationEnds:   starts.AddDate(0, -1, 0),
		Starts:            starts,
		Ends:              starts.AddDate(0, 0, 3),
		Fee:               25,
		MaxParticipants:   80,
		Organizers: []Organizer{
			{UserID: 1, FirstName: "Ada", LastName: "Lovelace"},
		},
		OrganizingBodies: []OrganizingBody{
			{BodyID: 10, BodyName: "Local committee"},
		},
	}
	for _, fn := range mutate {
		fn(ev)
	}
	return ev
}

func TestCreateAssignsIDAndDraftStatus(t *testing.T) {
	store := NewInMemory()

	created, err := store.Create(context.Background(), newTestEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !IsHexID(created.ID) {
		t.Fatalf("expected 24-hex id, got %q", created.ID)
	}
	if created.Status != StatusDraft {
		t.Fatalf("new events must start as draft, got %q", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", created)
	}
}

func TestCreateRejectsInvalidEvents(t *testing.T) {
	store := NewInMemory()
	cases := []struct {
		name   string
		mutate func(*Event)
	}{
		{"empty name", func(e *Event) { e.Name = "  " }},
		{"unknown type", func(e *Event) { e.Type = "rave" }},
		{"ends before starts", func(e *Event) { e.Ends = e.Starts.AddDate(0, 0, -1) }},
		{"negative fee", func(e *Event) { e.Fee = -1 }},
		{"hex slug", func(e *Event) { e.Slug = "5a1fe3c8b4de9f2c7d6e1a0b" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(context.Background(), newTestEvent(tc.mutate))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFindByIDAndBySlug(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent(func(e *Event) {
		e.Slug = "autumn-nwm"
	}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := store.Find(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Find by id: %v", err)
	}
	bySlug, err := store.Find(context.Background(), "autumn-nwm")
	if err != nil {
		t.Fatalf("Find by slug: %v", err)
	}
	if byID.ID != bySlug.ID {
		t.Fatalf("id and slug lookups disagree: %q vs %q", byID.ID, bySlug.ID)
	}

	if _, err := store.Find(context.Background(), "missing-slug"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "some new description"
	updated, err := store.Update(context.Background(), created.ID, Update{Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("description not applied: %q", updated.Description)
	}
	if updated.Name != created.Name {
		t.Fatalf("untouched field changed: %q", updated.Name)
	}
	// Status is not editable through Update.
	if updated.Status != StatusDraft {
		t.Fatalf("status must survive updates, got %q", updated.Status)
	}
}

func TestUpdateReplacesOrganizers(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	organizers := []Organizer{{UserID: 1337}}
	updated, err := store.Update(context.Background(), created.ID, Update{Organizers: &organizers})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Organizers) != 1 || updated.Organizers[0].UserID != 1337 {
		t.Fatalf("organizers not replaced: %+v", updated.Organizers)
	}
}

func TestSetStatusValidatesState(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	published, err := store.SetStatus(context.Background(), created.ID, StatusPublished)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if published.Status != StatusPublished {
		t.Fatalf("unexpected status: %q", published.Status)
	}

	if _, err := store.SetStatus(context.Background(), created.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListFiltersByStatusAndSkipsDeleted(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first, _ := store.Create(ctx, newTestEvent())
	second, _ := store.Create(ctx, newTestEvent(func(e *Event) {
		e.Name = "Winter conference"
		e.Starts = e.Starts.AddDate(0, 3, 0)
		e.Ends = e.Ends.AddDate(0, 3, 0)
	}))
	if _, err := store.SetStatus(ctx, first.ID, StatusPublished); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	published, err := store.List(ctx, Filter{Status: StatusPublished})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(published) != 1 || published[0].ID != first.ID {
		t.Fatalf("unexpected published listing: %+v", published)
	}

	if err := store.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("deleted event still listed: %+v", all)
	}
	if _, err := store.Find(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted event still findable: %v", err)
	}
}

func TestSetHeadImage(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetHeadImage(context.Background(), created.ID, "head.png"); err != nil {
		t.Fatalf("SetHeadImage: %v", err)
	}
	got, err := store.Find(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.HeadImage != "head.png" {
		t.Fatalf("head image not stored: %q", got.HeadImage)
	}
}

func TestLinksGetStableIDs(t *testing.T) {
	store := NewInMemory()
	created, err := store.Create(context.Background(), newTestEvent(func(e *Event) {
		e.Links = []Link{{URL: "https://example.org/agenda"}}
	}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Links) != 1 || created.Links[0].ID == "" {
		t.Fatalf("link id not assigned: %+v", created.Links)
	}

	id := created.Links[0].ID
	links := append([]Link(nil), created.Links...)
	links = append(links, Link{URL: "https://example.org/venue"})
	updated, err := store.Update(context.Background(), created.ID, Update{Links: &links})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Links[0].ID != id {
		t.Fatalf("existing link id changed: %q vs %q", updated.Links[0].ID, id)
	}
	if updated.Links[1].ID == "" {
		t.Fatalf("new link id not assigned")
	}
}
