package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimateEndsWithFullProgress(t *testing.T) {
	var steps []float64
	err := Animate(context.Background(), 50*time.Millisecond, 5*time.Millisecond, func(p float64) {
		steps = append(steps, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	assert.Equal(t, 1.0, steps[len(steps)-1])
	for i := 1; i < len(steps); i++ {
		assert.GreaterOrEqual(t, steps[i], steps[i-1])
		assert.Greater(t, steps[i], 0.0)
	}
}

func TestAnimateZeroDuration(t *testing.T) {
	var steps []float64
	require.NoError(t, Animate(context.Background(), 0, 0, func(p float64) { steps = append(steps, p) }))
	assert.Equal(t, []float64{1}, steps)
}

func TestAnimateCancelledSkipsFinalStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var last float64
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := Animate(ctx, time.Second, 5*time.Millisecond, func(p float64) { last = p })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, last, 1.0)
}

func TestAnimateAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Animate(ctx, 0, 0, func(float64) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscribers(t *testing.T) {
	var s Subscribers
	var got []string

	unsubA := s.Add(func(ev ClickEvent) { got = append(got, "a") })
	s.Add(func(ev ClickEvent) { got = append(got, "b") })
	assert.Equal(t, 2, s.Len())

	s.Emit(ClickEvent{Backend: FlatMap})
	assert.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	assert.Equal(t, 1, s.Len())

	got = nil
	s.Emit(ClickEvent{Backend: Globe})
	assert.Equal(t, []string{"b"}, got)
}

func TestLerpLngTakesShortWay(t *testing.T) {
	tests := []struct {
		a, b, p float64
		want    float64
	}{
		{a: 170, b: -170, p: 0.5, want: 180},
		{a: -170, b: 170, p: 0.5, want: -180},
		{a: 10, b: 30, p: 0.5, want: 20},
		{a: 179, b: -179, p: 1, want: -179},
	}
	for _, tt := range tests {
		got := LerpLng(tt.a, tt.b, tt.p)
		if tt.want == 180 || tt.want == -180 {
			assert.InDelta(t, 180, abs(got), 1e-9)
			continue
		}
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestNormalizeLng(t *testing.T) {
	assert.InDelta(t, -170.0, NormalizeLng(190), 1e-9)
	assert.InDelta(t, 170.0, NormalizeLng(-190), 1e-9)
	assert.InDelta(t, 45.0, NormalizeLng(45+720), 1e-9)
}

func TestClassesDrawOverlayFirst(t *testing.T) {
	classes := Classes()
	require.Len(t, classes, 4)
	assert.Equal(t, ClassOverlay, classes[0])
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
