package usecases

import (
	"context"

	"github.com/lintang-b-s/awooter/pkg/engine"
)

// RoutingEngine is one routing run over an already built design.
type RoutingEngine interface {
	Route(ctx context.Context) (*engine.Result, error)
}
