// Package progress provides a terminal progress display for batch
// extraction runs.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Manager handles the progress display for one batch.
type Manager struct {
	enabled   bool
	total     int
	completed int
	extracted int
	partial   int
	failed    int
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// NewManager creates a progress manager for total documents. When disabled
// no bar is drawn; Finish still prints the closing tally to stderr.
func NewManager(total int, enabled bool) *Manager {
	m := &Manager{
		enabled:   enabled,
		total:     total,
		startTime: time.Now(),
	}
	if enabled {
		m.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Extracting profiles"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("docs"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "|",
				BarEnd:        "|",
			}),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}
	return m
}

// IsEnabled reports whether the display is active.
func (m *Manager) IsEnabled() bool {
	return m != nil && m.enabled
}

// CompleteDocument records one finished document.
func (m *Manager) CompleteDocument(status string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed++
	switch status {
	case "extracted":
		m.extracted++
	case "partial":
		m.partial++
	default:
		m.failed++
	}
	if m.enabled && m.bar != nil {
		_ = m.bar.Add(1)
	}
}

// Finish closes the display and prints the tally.
func (m *Manager) Finish() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled && m.bar != nil {
		_ = m.bar.Finish()
	}
	fmt.Fprintf(os.Stderr, "Processed %d/%d documents in %s: %d extracted, %d partial, %d failed\n",
		m.completed, m.total, time.Since(m.startTime).Round(time.Millisecond),
		m.extracted, m.partial, m.failed)
}
