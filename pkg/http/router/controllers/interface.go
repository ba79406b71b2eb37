package controllers

import (
	"context"

	"github.com/lintang-b-s/awooter/pkg/http/usecases"
)

type RoutingService interface {
	Route(ctx context.Context, job usecases.RouteJob) (*usecases.RouteReport, error)
}
