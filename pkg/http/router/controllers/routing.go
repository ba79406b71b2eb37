package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/awooter/pkg"
	helper "github.com/lintang-b-s/awooter/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/awooter/pkg/http/usecases"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"go.uber.org/zap"
)

type routingAPI struct {
	routingService RoutingService
	hub            *Hub
	maxBodyBytes   int64
	log            *zap.Logger
}

func New(routingService RoutingService, hub *Hub, maxBodyBytes int64, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routingService: routingService,
		hub:            hub,
		maxBodyBytes:   maxBodyBytes,
		log:            log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.POST("/route", api.route)
}

// route
//
//	@Summary		route a design on a synthetic fabric
//	@Description	partitions the design, negotiates every region and returns the routing statistics. progress of the job is pushed to websocket subscribers of its job_id.
//	@Tags			routing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		routeRequest	true	"fabric and netlist"
//	@Success		200		{object}	routeResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		422		{object}	errorResponse
//	@Failure		500		{object}	errorResponse
//	@Router			/route [post]
func (api *routingAPI) route(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request routeRequest

	r.Body = http.MaxBytesReader(w, r.Body, api.maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	if err := validateStruct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	jobID := request.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	log := api.log.With(zap.String("job", jobID))

	start := time.Now()
	report, err := api.routingService.Route(r.Context(), usecases.RouteJob{
		ID:           jobID,
		Design:       request.ToDesign(),
		Depth:        request.Depth,
		IncludePaths: request.IncludePaths,
		Observer: observer.Multi(observer.NewZapObserver(log, pkg.PROGRESS_EVENTS_PER_SECOND),
			api.hub.Observer(jobID)),
	})
	api.hub.JobDone(jobID, time.Since(start), err)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("X-Job-Id", jobID)

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewRouteResponse(report)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
