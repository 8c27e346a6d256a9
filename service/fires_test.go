package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"wildfire-viz/metrics"
	"wildfire-viz/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":-20.5,"lon":130.1,"brightness":342.7,"acq_date":"2024-09-01"}]`))
	}))
	defer srv.Close()

	fires := NewFireFeed(srv.URL, time.Second, nil, nil).Fetch(context.Background())
	require.Len(t, fires, 1)
	assert.Equal(t, model.ActiveFire{Lat: -20.5, Lon: 130.1, Brightness: 342.7, AcqDate: "2024-09-01"}, fires[0])
}

func TestFireFeedFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := metrics.New()
	feed := NewFireFeed(srv.URL, time.Second, m, nil)
	feed.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }

	fires := feed.Fetch(context.Background())
	require.Len(t, fires, 6)
	assert.Equal(t, -23.6980, fires[0].Lat)
	assert.Equal(t, 395.0, fires[0].Brightness)
	for _, f := range fires {
		assert.Equal(t, "2025-03-14", f.AcqDate)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FireFeedFallbacks))
}

func TestFireRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":1,"lon":2,"brightness":310,"acq_date":"2024-01-01"}]`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got [][]model.ActiveFire
	applied := make(chan struct{}, 4)
	r := NewFireRefresher(NewFireFeed(srv.URL, time.Second, nil, nil), "@every 1h", func(f []model.ActiveFire) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
		applied <- struct{}{}
	}, nil)

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()))
	select {
	case <-applied:
	case <-time.After(5 * time.Second):
		t.Fatal("initial refresh did not run")
	}
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0][0].Lon)
}

func TestFireRefresherStopWaitsForInitialLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":1,"lon":2,"brightness":310,"acq_date":"2024-01-01"}]`))
	}))
	defer srv.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	r := NewFireRefresher(NewFireFeed(srv.URL, time.Second, nil, nil), "@every 1h", func([]model.ActiveFire) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}, nil)

	require.NoError(t, r.Start(context.Background()))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("initial refresh did not run")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while the initial refresh was still applying")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	r.Refresh()
	assert.Equal(t, int32(1), calls.Load())
}

func TestFireRefresherBadSchedule(t *testing.T) {
	r := NewFireRefresher(NewFireFeed("", 0, nil, nil), "every now and then", func([]model.ActiveFire) {}, nil)
	assert.Error(t, r.Start(context.Background()))
}
