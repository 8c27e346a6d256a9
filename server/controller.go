// Package server exposes the synchronized scenes over HTTP and streams click
// and scene-change events over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"wildfire-viz/log"
	"wildfire-viz/metrics"
	"wildfire-viz/renderer/flatmap"
	"wildfire-viz/renderer/globe"
	"wildfire-viz/service"
	"wildfire-viz/usecase"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Deps are the components the controller serves. All are owned by the caller.
type Deps struct {
	Sync        *service.DualProjectionSync
	FlatMap     *flatmap.Map
	Globe       *globe.Globe
	Hub         *Hub
	Synthesizer *usecase.Synthesizer
	Metrics     *metrics.Metrics
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	Server   http.Server
	deps     Deps
	logger   *zap.SugaredLogger
	handlers *Handlers
}

func NewController(ctx context.Context, wg *sync.WaitGroup, addr string, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Sync == nil || deps.FlatMap == nil || deps.Globe == nil {
		return nil, fmt.Errorf("controller needs the sync and both backends")
	}
	if logger == nil {
		logger = log.Named("server")
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(logger)
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = usecase.NewSeededSynthesizer(uint64(time.Now().UnixNano()))
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		deps:   deps,
		logger: logger,
	}
	ctrl.handlers = NewHandlers(ctrl)
	ctrl.Server.Addr = addr
	ctrl.Server.Handler = ctrl.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second
	return ctrl, nil
}

// StartController starts the REST server and shuts it down when ctx ends.
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		c.deps.Hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.logger.Warnf("REST server shutdown: %v", err)
		}
	}()

	return nil
}

// Router configures the HTTP router with all endpoints.
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	h := c.handlers

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/labels", h.GetLabels).Methods(http.MethodGet)
	router.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	router.HandleFunc("/legend", h.GetLegend).Methods(http.MethodGet)
	router.HandleFunc("/scene/{backend}", h.GetScene).Methods(http.MethodGet)
	router.HandleFunc("/fires", h.PutFires).Methods(http.MethodPut)
	router.HandleFunc("/hotspots", h.PutHotspots).Methods(http.MethodPut)
	router.HandleFunc("/focus", h.PutFocus).Methods(http.MethodPut)
	router.HandleFunc("/focus", h.DeleteFocus).Methods(http.MethodDelete)
	router.HandleFunc("/custom", h.PutCustom).Methods(http.MethodPut)
	router.HandleFunc("/custom", h.DeleteCustom).Methods(http.MethodDelete)
	router.HandleFunc("/click/{backend}", h.PostClick).Methods(http.MethodPost)
	router.HandleFunc("/distribution", h.GetDistribution).Methods(http.MethodGet)
	router.HandleFunc("/ws", c.deps.Hub.ServeWS)
	router.Handle("/metrics", c.deps.Metrics.Handler()).Methods(http.MethodGet)

	return router
}
