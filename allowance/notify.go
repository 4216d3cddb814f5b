package allowance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// NOTIFICATION HOOKS - Fired after a transition commits
// =============================================================================

// EventKind names who a notification is for.
type EventKind string

const (
	NotifyLineManager EventKind = "notify_line_manager"
	NotifyHR          EventKind = "notify_hr"
	NotifyCompletion  EventKind = "notify_completion"
)

// hooks maps an entered status to the notification it triggers.
var hooks = map[Status]EventKind{
	StatusSubmitted:       NotifyLineManager,
	StatusManagerApproved: NotifyHR,
	StatusCompleted:       NotifyCompletion,
}

// Event is a notification about a claim entering a status.
type Event struct {
	ID           string
	Kind         EventKind
	RequestID    int64
	RequestNo    string
	DepartmentID int64
	Status       Status
	ActorID      int64
	At           time.Time
}

// Notifier delivers events. Implementations must not block the caller for
// delivery; errors are logged by the caller and never undo the transition.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// eventsFor builds the events for the statuses entered by a transition.
func eventsFor(r *Request, path []Status, actor Principal, at time.Time) []Event {
	var out []Event
	for _, s := range path {
		kind, ok := hooks[s]
		if !ok {
			continue
		}
		out = append(out, Event{
			ID:           uuid.NewString(),
			Kind:         kind,
			RequestID:    r.ID,
			RequestNo:    r.RequestID,
			DepartmentID: r.DepartmentID,
			Status:       s,
			ActorID:      actor.UserID,
			At:           at,
		})
	}
	return out
}
