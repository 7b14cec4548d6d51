// Package decision defines the append-only decision repository port.
package decision

import (
	"context"

	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
)

type Repository interface {
	Create(ctx context.Context, d domaindecision.Decision) (domaindecision.Decision, error)
	List(ctx context.Context, filters domaindecision.ListFilters) ([]domaindecision.Decision, error)
}
