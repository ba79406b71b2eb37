package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	READ_TIMEOUT        = 30 * time.Second
	READ_HEADER_TIMEOUT = 5 * time.Second
	IDLE_TIMEOUT        = 2 * time.Minute
	WRITE_GRACE         = 5 * time.Second
)

type Config struct {
	Port              int
	WebsocketPort     int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxBodyBytes      int64
	WebsocketTimeout  time.Duration
}

// New builds the api server, or the websocket server when websocket is set. routing requests may run for
// Timeout, so writes get that long plus a grace period.
func New(ctx context.Context, handler http.Handler, config Config, websocket bool) *http.Server {
	port := config.Port
	if websocket {
		port = config.WebsocketPort
	}
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:       READ_TIMEOUT,
		ReadHeaderTimeout: READ_HEADER_TIMEOUT,
		WriteTimeout:      config.Timeout + WRITE_GRACE,
		IdleTimeout:       IDLE_TIMEOUT,
	}
}
