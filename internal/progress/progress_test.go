package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ConcurrentTicks(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, "files", 50, false)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Tick()
		}()
	}
	wg.Wait()
	tracker.Finish()

	assert.Equal(t, 50, tracker.Count())
	assert.Empty(t, buf.String(), "hidden tracker must not draw")
}

func TestTracker_Visible(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, "files", 2, true)
	tracker.Tick()
	tracker.Tick()
	tracker.Finish()
	assert.Equal(t, 2, tracker.Count())
	assert.NotEmpty(t, buf.String())
}
