package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
)

const (
	NaturalEarthCountriesURL = "https://raw.githubusercontent.com/martynafford/natural-earth-geojson/master/110m/cultural/ne_110m_admin_0_countries.json"
	NaturalEarthStatesURL    = "https://raw.githubusercontent.com/martynafford/natural-earth-geojson/master/110m/cultural/ne_110m_admin_1_states_provinces.json"

	// Natural Earth 110m admin 1 is a few MB; anything far past that is not a
	// boundary file.
	maxBoundaryBytes = 64 << 20
)

// Boundaries holds the two administrative feature collections. Either may be
// empty.
type Boundaries struct {
	Countries []*geojson.Feature
	States    []*geojson.Feature
}

type BoundarySource interface {
	// Fetch returns whatever it could load. A collection that failed to load
	// is left empty and reported in the error.
	Fetch(ctx context.Context) (Boundaries, error)
}

// HTTPBoundarySource fetches both collections over HTTP. A URL without a
// scheme is read from the local filesystem instead.
type HTTPBoundarySource struct {
	Client       *http.Client
	CountriesURL string
	StatesURL    string
}

func NewHTTPBoundarySource(countriesURL, statesURL string, timeout time.Duration) *HTTPBoundarySource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBoundarySource{
		Client:       &http.Client{Timeout: timeout},
		CountriesURL: countriesURL,
		StatesURL:    statesURL,
	}
}

func (s *HTTPBoundarySource) Fetch(ctx context.Context) (Boundaries, error) {
	var b Boundaries
	countries, errC := fetchFeatureCollection(ctx, s.Client, s.CountriesURL)
	if errC == nil {
		b.Countries = countries.Features
	}
	states, errS := fetchFeatureCollection(ctx, s.Client, s.StatesURL)
	if errS == nil {
		b.States = states.Features
	}
	return b, errors.Join(errC, errS)
}

func fetchFeatureCollection(ctx context.Context, client *http.Client, url string) (*geojson.FeatureCollection, error) {
	if url == "" {
		return nil, fmt.Errorf("boundary url not configured")
	}
	if !strings.Contains(url, "://") {
		return readFeatureCollectionFile(url)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBoundaryBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return fc, nil
}

func readFeatureCollectionFile(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	features, err := ReadBoundaryFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &geojson.FeatureCollection{Type: "FeatureCollection", Features: features}, nil
}

// StaticBoundarySource serves fixed collections. It is what the CLI uses for
// local files and what tests use in place of the network.
type StaticBoundarySource struct {
	Boundaries Boundaries
	Err        error
}

func (s StaticBoundarySource) Fetch(ctx context.Context) (Boundaries, error) {
	if err := ctx.Err(); err != nil {
		return Boundaries{}, err
	}
	return s.Boundaries, s.Err
}

// ReadBoundaryFile decodes a GeoJSON feature collection from r.
func ReadBoundaryFile(r io.Reader) ([]*geojson.Feature, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBoundaryBytes))
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return fc.Features, nil
}
