// Package progress renders build progress on stderr.
package progress

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar counting processed files.
type Tracker struct {
	bar   *progressbar.ProgressBar
	count atomic.Int64
}

// NewTracker creates a progress bar with the given label and total count.
// A hidden tracker still counts but never draws.
func NewTracker(label string, total int, visible bool) *Tracker {
	return newTracker(os.Stderr, label, total, visible)
}

func newTracker(w io.Writer, label string, total int, visible bool) *Tracker {
	if !visible {
		w = io.Discard
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.count.Add(1)
	_ = t.bar.Add(1)
}

// Count returns the number of ticks so far.
func (t *Tracker) Count() int {
	return int(t.count.Load())
}

// Finish clears the bar from the terminal.
func (t *Tracker) Finish() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}
