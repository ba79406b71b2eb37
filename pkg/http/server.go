package http

import (
	"context"

	http_router "github.com/lintang-b-s/awooter/pkg/http/router"
	"github.com/lintang-b-s/awooter/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/awooter/pkg/http/server"
	"github.com/lintang-b-s/awooter/pkg/util"
	"go.uber.org/zap"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the routing api and the progress websocket until ctx is cancelled.
func (s *Server) Use(
	ctx context.Context,
	cfg util.ServerConfig,
	routingService controllers.RoutingService,
) error {
	config := NewConfig(cfg)
	api := http_router.NewAPI(s.Log, config)
	return api.Run(ctx, config, cfg.RateLimit, routingService)
}

func NewConfig(cfg util.ServerConfig) http_server.Config {
	return http_server.Config{
		Port:              cfg.Port,
		WebsocketPort:     cfg.WebsocketPort,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		WebsocketTimeout:  cfg.WebsocketTimeout,
	}
}
