package permissions

import (
	"strconv"

	"agora.events/internal/events"
	"agora.events/internal/identity"
)

// userRoles is what the role-visibility check intersects against. The core
// service has no role catalog yet, so this stays empty and the roles branch
// of the filter never matches. Intentional no-op, not a bug.
var userRoles []string

// FilterVisible returns a copy of event whose links are narrowed to the ones
// the user may see. A link survives when the user id is listed explicitly,
// when its roles intersect the user's roles, or when its special grants
// intersect the user's special rights.
func FilterVisible(event *events.Event, user *identity.UserRecord) *events.Event {
	if event == nil {
		return nil
	}
	out := event.Clone()
	if user == nil {
		out.Links = []events.Link{}
		return out
	}

	userID := strconv.FormatInt(user.ID, 10)
	visible := make([]events.Link, 0, len(out.Links))
	for _, link := range out.Links {
		if contains(link.Visibility.Users, userID) ||
			intersects(link.Visibility.Roles, userRoles) ||
			intersects(link.Visibility.Special, user.Special) {
			visible = append(visible, link)
		}
	}
	out.Links = visible
	return out
}

func contains(list []string, needle string) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}

// intersects reports whether the two collections share at least one element.
func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, item := range a {
		seen[item] = struct{}{}
	}
	for _, item := range b {
		if _, ok := seen[item]; ok {
			return true
		}
	}
	return false
}
