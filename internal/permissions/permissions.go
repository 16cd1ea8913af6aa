// Package permissions turns a resolved identity and an optional target event
// into a strict-boolean capability set.
package permissions

import (
	"agora.events/internal/events"
	"agora.events/internal/identity"
)

// Capability keys derived for every request.
const (
	IsSuperadmin  = "superadmin"
	IsBoardmember = "boardmember"

	CanViewLocalInvolvedEvents = "view_local_involved_events"
)

// Set is the per-request permission object. Every value under Is and Can is
// exactly true or false; downstream consumers never see any other type.
type Set struct {
	Is      map[string]bool `json:"is"`
	Can     map[string]bool `json:"can"`
	Special []string        `json:"special"`
}

// Grant is a loosely-typed permission fragment as produced by an event
// policy. Values may be booleans, nil, or anything else truthy; they are
// normalized exactly once when merged into a Set.
type Grant struct {
	Is      map[string]any
	Can     map[string]any
	Special []string
}

// EventPolicy computes event-scoped permissions for a user. Implementations
// must be pure: identical inputs produce identical grants.
type EventPolicy interface {
	EventPermissions(event *events.Event, user *identity.UserRecord) Grant
}

// Evaluator combines standing user roles with event-scoped policy output.
type Evaluator struct {
	boardCircleID int64
	policy        EventPolicy
}

// NewEvaluator builds an evaluator. boardCircleID identifies the global
// board circle; policy may be nil when no event-scoped rules apply.
func NewEvaluator(boardCircleID int64, policy EventPolicy) *Evaluator {
	return &Evaluator{boardCircleID: boardCircleID, policy: policy}
}

// Evaluate computes the permission set for user, optionally scoped to event.
// It is pure: no hidden state, no randomness, and it never fails — corrupt
// or partial policy output only degrades the derived capabilities.
func (e *Evaluator) Evaluate(user *identity.UserRecord, event *events.Event) Set {
	set := Set{
		Is:      make(map[string]bool),
		Can:     make(map[string]bool),
		Special: append([]string(nil), user.Special...),
	}

	set.Is[IsSuperadmin] = user.Superadmin
	set.Is[IsBoardmember] = e.isBoardmember(user)
	set.Can[CanViewLocalInvolvedEvents] = set.Is[IsBoardmember] || set.Is[IsSuperadmin]

	if event != nil && e.policy != nil {
		grant := e.policy.EventPermissions(event, user)
		for key, value := range grant.Is {
			set.Is[key] = truthy(value)
		}
		for key, value := range grant.Can {
			set.Can[key] = truthy(value)
		}
		set.Special = append(set.Special, grant.Special...)
	}

	return set
}

func (e *Evaluator) isBoardmember(user *identity.UserRecord) bool {
	for _, circle := range user.Circles {
		if circle.ParentID == e.boardCircleID {
			return true
		}
	}
	return false
}

// truthy is the single normalization point coercing policy output to strict
// booleans. A missing key, nil, false, zero, or empty string is false;
// everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
