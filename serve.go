package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"wildfire-viz/config"
	"wildfire-viz/log"
	"wildfire-viz/metrics"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/renderer/flatmap"
	"wildfire-viz/renderer/globe"
	"wildfire-viz/server"
	"wildfire-viz/service"

	"github.com/spf13/cobra"
)

// loadConfig resolves the persistent flags shared by every command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Debug = true
	}
	if err := log.Init(cfg.Log.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scene server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()

	flatOpts := flatmap.DefaultOptions()
	flatOpts.Width, flatOpts.Height = cfg.FlatMap.Width, cfg.FlatMap.Height
	flat := flatmap.New(flatOpts)
	glb := globe.New(globe.DefaultOptions())

	hub := server.NewHub(log.Named("hub"))
	clickLog := log.Named("click")

	viz, err := service.NewDualProjectionSync(service.SyncOptions{
		TransitionDuration: cfg.Camera.TransitionDuration,
		FlatZoom:           cfg.Camera.FlatZoom,
		GlobeAltitude:      cfg.Camera.GlobeAltitude,
		LabelRules:         cfg.LabelRules(),
		OnMapClick: func(lat, lon float64) {
			clickLog.Infow("map click", "lat", lat, "lon", lon)
			hub.Publish(server.ClickEvent(lat, lon))
		},
		OnChange: func(c renderer.LayerClass) {
			hub.Publish(server.SceneEvent(c))
		},
		Logger:  log.Named("viz"),
		Metrics: m,
	}, flat, glb)
	if err != nil {
		return fmt.Errorf("create sync: %w", err)
	}
	defer viz.Close()

	boundaries := service.NewHTTPBoundarySource(cfg.Boundaries.CountriesURL, cfg.Boundaries.StatesURL, cfg.Boundaries.Timeout)
	viz.LoadBoundaries(ctx, boundaries)

	feed := service.NewFireFeed(cfg.Firms.URL, cfg.Firms.Timeout, m, log.Named("firms"))
	refresher := service.NewFireRefresher(feed, cfg.Firms.RefreshSchedule, func(fires []model.ActiveFire) {
		if err := viz.SetFires(fires); err != nil {
			log.Warnf("apply active fires: %v", err)
		}
	}, log.Named("firms"))
	if err := refresher.Start(ctx); err != nil {
		return err
	}
	defer refresher.Stop()

	var wg sync.WaitGroup
	ctrl, err := server.NewController(ctx, &wg, cfg.Server.Addr(), server.Deps{
		Sync:    viz,
		FlatMap: flat,
		Globe:   glb,
		Hub:     hub,
		Metrics: m,
	}, log.Named("server"))
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()
	return nil
}
