package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"wildfire-viz/metrics"
	"wildfire-viz/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultFireFeedURL     = "http://localhost:8000/active-fires"
	DefaultRefreshSchedule = "*/10 * * * *"
	acqDateLayout          = "2006-01-02"
)

// FallbackFires is served when the active-fire endpoint is unreachable, so the
// map never comes up empty.
func FallbackFires(now time.Time) []model.ActiveFire {
	today := now.Format(acqDateLayout)
	return []model.ActiveFire{
		{Lat: -23.6980, Lon: 133.8807, Brightness: 395, AcqDate: today}, // Alice Springs
		{Lat: -22.5609, Lon: 17.0658, Brightness: 385, AcqDate: today},  // Windhoek
		{Lat: -33.4489, Lon: -70.6693, Brightness: 375, AcqDate: today}, // Santiago
		{Lat: 21.1458, Lon: 79.0882, Brightness: 365, AcqDate: today},   // Nagpur
		{Lat: 12.8797, Lon: 121.7740, Brightness: 350, AcqDate: today},  // Philippines
		{Lat: -15.7801, Lon: -47.9292, Brightness: 360, AcqDate: today}, // Brasilia
	}
}

type FireFeed struct {
	client  *http.Client
	url     string
	now     func() time.Time
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewFireFeed(url string, timeout time.Duration, m *metrics.Metrics, logger *zap.SugaredLogger) *FireFeed {
	if url == "" {
		url = DefaultFireFeedURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FireFeed{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		now:     time.Now,
		logger:  orDefault(logger),
		metrics: m,
	}
}

// Fetch returns the current active fires. It never fails: any error is logged
// and answered with FallbackFires.
func (f *FireFeed) Fetch(ctx context.Context) []model.ActiveFire {
	fires, err := f.fetch(ctx)
	if err != nil {
		f.logger.Warnf("active fire feed unavailable, using fallback: %v", err)
		f.metrics.FireFeedFellBack()
		return FallbackFires(f.now())
	}
	return fires
}

func (f *FireFeed) fetch(ctx context.Context) ([]model.ActiveFire, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var fires []model.ActiveFire
	if err := json.NewDecoder(resp.Body).Decode(&fires); err != nil {
		return nil, fmt.Errorf("decode active fires: %w", err)
	}
	return fires, nil
}

// FireRefresher polls a FireFeed on a cron schedule and hands each result to
// apply as a full replacement.
type FireRefresher struct {
	feed     *FireFeed
	apply    func([]model.ActiveFire)
	schedule string
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	// running is held for the whole of a refresh so Stop can wait it out.
	running sync.Mutex
}

func NewFireRefresher(feed *FireFeed, schedule string, apply func([]model.ActiveFire), logger *zap.SugaredLogger) *FireRefresher {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	return &FireRefresher{
		feed:     feed,
		apply:    apply,
		schedule: schedule,
		logger:   orDefault(logger),
	}
}

// Start loads once immediately and then on every tick of the schedule.
func (r *FireRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return fmt.Errorf("fire refresher already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.Refresh); err != nil {
		return fmt.Errorf("schedule %q: %w", r.schedule, err)
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron = c

	go r.Refresh()
	c.Start()
	r.logger.Infof("active fire refresh scheduled: %s", r.schedule)
	return nil
}

// Refresh fetches once and applies the result. Refreshes never overlap, and
// none applies after Stop has returned.
func (r *FireRefresher) Refresh() {
	r.running.Lock()
	defer r.running.Unlock()

	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	fires := r.feed.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	r.logger.Debugf("active fire refresh: %d fires", len(fires))
	r.apply(fires)
}

// Stop halts the schedule and waits for a running refresh to return.
func (r *FireRefresher) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()

	r.running.Lock()
	r.running.Unlock()
}
