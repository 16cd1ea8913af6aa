package permissions

import (
	"agora.events/internal/events"
	"agora.events/internal/identity"
)

// Event-scoped capability keys produced by OrganizerPolicy.
const (
	IsOrganizer = "organizer"

	CanEditEvent        = "edit_event"
	CanDeleteEvent      = "delete_event"
	CanViewApplications = "view_applications"
	CanApply            = "apply"
)

// OrganizerPolicy derives event permissions from the organizer list and the
// event lifecycle state. Superadmins get full rights on every event.
type OrganizerPolicy struct{}

func (OrganizerPolicy) EventPermissions(event *events.Event, user *identity.UserRecord) Grant {
	organizer := event.IsOrganizer(user.ID)
	manage := organizer || user.Superadmin

	grant := Grant{
		Is: map[string]any{
			IsOrganizer: organizer,
		},
		Can: map[string]any{
			CanEditEvent:        manage,
			CanDeleteEvent:      manage,
			CanViewApplications: manage,
			CanApply:            event.Status == events.StatusPublished && !organizer,
		},
	}
	if organizer {
		for _, org := range event.Organizers {
			if org.UserID == user.ID {
				grant.Special = append(grant.Special, org.Special...)
			}
		}
	}
	return grant
}
