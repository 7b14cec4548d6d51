package wire

import (
	"context"
	"log/slog"
	"time"

	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
)

// startBoardReconciler runs ReconcileWithBoard for every project on a fixed
// interval (spec §12.2's "monitoring_interval" ticker). Grounded on the
// teacher's startReaper background-goroutine shape, generalized from a
// per-agent grace timer into a per-project polling sweep since board
// reconciliation has no event to react to — only a clock.
func startBoardReconciler(ctx context.Context, app *App) {
	ticker := time.NewTicker(app.monitoringInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reconcileAllProjects(ctx, app)
			}
		}
	}()
}

func reconcileAllProjects(ctx context.Context, app *App) {
	projects, err := app.projects.List(ctx)
	if err != nil {
		slog.Error("board reconciler: failed to list projects", "error", err)
		return
	}

	for _, p := range projects {
		if p.BoardBinding.Provider == "" {
			continue
		}

		activeState := domainassignment.StateActive
		active, err := app.assignments.List(ctx, domainassignment.ListFilters{ProjectID: &p.ID, State: &activeState})
		if err != nil {
			slog.Error("board reconciler: failed to list active assignments", "project_id", p.ID, "error", err)
			continue
		}
		activeTaskIDs := make(map[string]bool, len(active))
		for _, a := range active {
			activeTaskIDs[a.TaskID] = true
		}

		if err := app.Registry.ReconcileWithBoard(ctx, p.ID, activeTaskIDs); err != nil {
			slog.Error("board reconciler: reconcile failed", "project_id", p.ID, "error", err)
		}
	}
}
