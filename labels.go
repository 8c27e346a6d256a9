package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"wildfire-viz/model"
	"wildfire-viz/service"
	"wildfire-viz/usecase"

	geojson "github.com/paulmach/go.geojson"
	"github.com/spf13/cobra"
)

func newLabelsCmd() *cobra.Command {
	var (
		out      string
		outlines bool
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Compose boundary labels and write them as GeoJSON points",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Boundaries.Timeout)
			defer cancel()
			src := service.NewHTTPBoundarySource(cfg.Boundaries.CountriesURL, cfg.Boundaries.StatesURL, cfg.Boundaries.Timeout)
			b, err := src.Fetch(ctx)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			labels := usecase.AdminLabels(b.Countries, b.States, cfg.LabelRules())
			fc := labelsToFeatureCollection(labels)
			if outlines {
				for _, o := range service.CleanOverlay(b.Countries, b.States) {
					f := usecase.MakeGeojsonPolygon(o.Ring)
					f.SetProperty("name", o.Name)
					f.SetProperty("country", o.Country)
					fc.AddFeature(f)
				}
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}

			encoder := json.NewEncoder(w)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(fc); err != nil {
				return fmt.Errorf("write GeoJSON: %w", err)
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d labels to %s\n", len(labels), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&outlines, "outlines", false, "also write the cleaned boundary polygons")
	return cmd
}

func labelsToFeatureCollection(labels []model.Label) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range labels {
		f := usecase.MakeGeojsonPoint(model.Point{Latitude: l.Lat, Longitude: l.Lng})
		f.SetProperty("text", l.Text)
		f.SetProperty("type", string(l.Type))
		f.SetProperty("size", l.Size)
		if l.Color != "" {
			f.SetProperty("color", l.Color)
		}
		fc.AddFeature(f)
	}
	return fc
}
