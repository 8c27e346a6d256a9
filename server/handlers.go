package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"wildfire-viz/log"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/renderer/flatmap"
	"wildfire-viz/service"
	"wildfire-viz/usecase"

	"github.com/gorilla/mux"
	geojson "github.com/paulmach/go.geojson"
)

type Handlers struct {
	controller *Controller
}

func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{controller: ctrl}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return err
	}
	return nil
}

// applyResult maps a sync error to a response.
func applyResult(w http.ResponseWriter, err error, status int) {
	switch {
	case err == nil:
		w.WriteHeader(status)
	case errors.Is(err, service.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": h.controller.deps.Hub.ClientCount(),
	})
}

func (h *Handlers) GetLabels(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.deps.Sync.Labels())
}

func (h *Handlers) GetState(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.deps.Sync.State())
}

// Legend is the shared visual contract other panels render against.
type Legend struct {
	Risk    map[model.RiskLevel]string `json:"risk"`
	Unknown string                     `json:"unknown"`
	Thermal []string                   `json:"thermal"`
	Grid    [2]int                     `json:"grid"`
}

func (h *Handlers) GetLegend(w http.ResponseWriter, req *http.Request) {
	legend := Legend{
		Risk:    map[model.RiskLevel]string{},
		Unknown: usecase.RiskColor(""),
		Thermal: usecase.ThermalLegend(),
		Grid:    [2]int{model.GridRows, model.GridCols},
	}
	for _, r := range []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskExtreme} {
		legend.Risk[r] = usecase.RiskColor(r)
	}
	writeJSON(w, http.StatusOK, legend)
}

type flatScene struct {
	Camera   flatmap.Camera             `json:"camera"`
	Features *geojson.FeatureCollection `json:"features"`
}

func (h *Handlers) GetScene(w http.ResponseWriter, req *http.Request) {
	switch renderer.Backend(mux.Vars(req)["backend"]) {
	case renderer.FlatMap:
		m := h.controller.deps.FlatMap
		writeJSON(w, http.StatusOK, flatScene{Camera: m.Camera(), Features: m.Snapshot()})
	case renderer.Globe:
		writeJSON(w, http.StatusOK, h.controller.deps.Globe.Snapshot())
	default:
		writeError(w, http.StatusNotFound, "unknown backend")
	}
}

func (h *Handlers) PutFires(w http.ResponseWriter, req *http.Request) {
	var fires []model.ActiveFire
	if err := decodeBody(w, req, &fires); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	applyResult(w, h.controller.deps.Sync.SetFires(fires), http.StatusNoContent)
}

func (h *Handlers) PutHotspots(w http.ResponseWriter, req *http.Request) {
	var hotspots []model.AnalyzedHotspot
	if err := decodeBody(w, req, &hotspots); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range hotspots {
		if err := normalizePrediction(&hotspots[i]); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("hotspot %d: %v", i, err))
			return
		}
	}
	applyResult(w, h.controller.deps.Sync.SetHotspots(hotspots), http.StatusNoContent)
}

// normalizePrediction fills a missing risk level from the fire probability
// and rejects unknown levels.
func normalizePrediction(hs *model.AnalyzedHotspot) error {
	p := hs.Prediction
	if p == nil {
		return nil
	}
	if p.RiskLevel == "" {
		p.RiskLevel = usecase.RiskLevelFromProbability(p.FireProbability)
		return nil
	}
	if _, err := model.ParseRiskLevel(string(p.RiskLevel)); err != nil {
		return err
	}
	return nil
}

// validateFocus rejects a focus that names no hotspot or lies off the globe;
// clearing the focus is DELETE /focus.
func validateFocus(hs model.AnalyzedHotspot) error {
	if hs.ID == "" {
		return fmt.Errorf("focus needs a hotspot id")
	}
	lat, lon := hs.FireData.Lat, hs.FireData.Lon
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("focus coordinates (%g, %g) out of range", lat, lon)
	}
	return nil
}

func (h *Handlers) PutFocus(w http.ResponseWriter, req *http.Request) {
	var hs model.AnalyzedHotspot
	if err := decodeBody(w, req, &hs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateFocus(hs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	applyResult(w, h.controller.deps.Sync.SetFocus(&hs), http.StatusAccepted)
}

func (h *Handlers) DeleteFocus(w http.ResponseWriter, req *http.Request) {
	applyResult(w, h.controller.deps.Sync.SetFocus(nil), http.StatusNoContent)
}

func (h *Handlers) PutCustom(w http.ResponseWriter, req *http.Request) {
	var hs model.AnalyzedHotspot
	if err := decodeBody(w, req, &hs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := normalizePrediction(&hs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	applyResult(w, h.controller.deps.Sync.SetCustomPrediction(&hs), http.StatusNoContent)
}

func (h *Handlers) DeleteCustom(w http.ResponseWriter, req *http.Request) {
	applyResult(w, h.controller.deps.Sync.SetCustomPrediction(nil), http.StatusNoContent)
}

// clickRequest is a viewport pixel (x, y) for the flat map, or a point
// (x, y, z) in globe-centred coordinates for the globe.
type clickRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func (h *Handlers) PostClick(w http.ResponseWriter, req *http.Request) {
	var body clickRequest
	if err := decodeBody(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.X == nil || body.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	switch renderer.Backend(mux.Vars(req)["backend"]) {
	case renderer.FlatMap:
		writeJSON(w, http.StatusOK, h.controller.deps.FlatMap.Click(*body.X, *body.Y))
	case renderer.Globe:
		if body.Z == nil {
			writeError(w, http.StatusBadRequest, "z is required for the globe")
			return
		}
		ev, err := h.controller.deps.Globe.Click(*body.X, *body.Y, *body.Z)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ev)
	default:
		writeError(w, http.StatusNotFound, "unknown backend")
	}
}

// GetDistribution synthesizes a risk-density panel. With a seed the result is
// reproducible.
func (h *Handlers) GetDistribution(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	level := model.RiskLow
	if r := q.Get("risk"); r != "" {
		parsed, err := model.ParseRiskLevel(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		level = parsed
	}

	synth := h.controller.deps.Synthesizer
	if s := q.Get("seed"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an unsigned integer")
			return
		}
		synth = usecase.NewSeededSynthesizer(seed)
	}

	writeJSON(w, http.StatusOK, synth.Synthesize(level))
}
