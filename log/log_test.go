package log

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedBuildsFallbackOnce(t *testing.T) {
	mu.Lock()
	log, baseLogger = nil, nil
	mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, Named("service"))
			Warnf("concurrent first use %d", 1)
		}()
	}
	wg.Wait()

	first := GetSugaredLogger()
	require.NotNil(t, first)
	assert.Same(t, first, GetSugaredLogger())
}

func TestInitReplacesFallback(t *testing.T) {
	before := GetSugaredLogger()
	require.NoError(t, Init(true))
	assert.NotSame(t, before, GetSugaredLogger())
	Sync()
}
