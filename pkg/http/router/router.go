package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lintang-b-s/awooter/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/awooter/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/awooter/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"golang.org/x/sync/errgroup"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "net/http/pprof"
)

type API struct {
	log    *zap.Logger
	hub    *controllers.Hub
	poller netpoll.Poller
}

func NewAPI(log *zap.Logger, config http_server.Config) *API {
	return &API{
		log: log,
		hub: controllers.NewHub(log, config.WebsocketTimeout),
	}
}

//	@title			awooter API
//	@version		1.0
//	@description	partitioned negotiated congestion router for FPGA designs on synthetic fabrics.

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	useRateLimit bool,
	routingService controllers.RoutingService,
) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(config, useRateLimit, routingService), config, false)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.serveWebsocket(gctx, config)
	})
	g.Go(func() error {
		api.log.Info(fmt.Sprintf("API run on port %d", config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		api.log.Info("shutting down server")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Handler is the api with its middleware chain, without any listener.
func (api *API) Handler(config http_server.Config, useRateLimit bool,
	routingService controllers.RoutingService) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Job-Id"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)

	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	router.HandlerFunc(http.MethodGet, "/ws", api.upstream("routing progress", "tcp",
		"localhost:"+strconv.Itoa(config.WebsocketPort)))

	group := router_helper.NewRouteGroup(router, "/api")

	routingRoutes := controllers.New(routingService, api.hub, config.MaxBodyBytes, api.log)

	routingRoutes.Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("/healthz"), Logger(api.log)}
	if useRateLimit {
		mwChain = append(mwChain, Limit(config.RequestsPerSecond))
	}
	mwChain = append(mwChain, Deadline(config.Timeout))
	return alice.New(mwChain...).Then(router)
}

func (api *API) Hub() *controllers.Hub {
	return api.hub
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
