package notifier

import "context"

// ProjectNotifier broadcasts an event to every connected agent session
// registered against a project. Marcus agents carry a skill set rather
// than a single fixed role, so broadcast is scoped to the project as a
// whole rather than to a role within it.
type ProjectNotifier interface {
	NotifyProject(ctx context.Context, projectID string, event any) error
}
