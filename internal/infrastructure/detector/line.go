// Package detector provides barcode detectors that feed scan sessions.
package detector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/unpackeat/backend/internal/domain"
)

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("detector already started")

// LineDetector reads one detection per line, as printed by zbarcam or a
// keyboard-wedge scanner. Lines may carry a symbology prefix ("EAN-13:...").
type LineDetector struct {
	r       io.Reader
	mu      sync.Mutex
	started bool
	stop    chan struct{}
	once    sync.Once
}

// NewLineDetector creates a detector reading from r
func NewLineDetector(r io.Reader) *LineDetector {
	return &LineDetector{r: r, stop: make(chan struct{})}
}

// Start begins reading lines. The channel is closed at end of input, on Stop
// or when ctx is done.
func (d *LineDetector) Start(ctx context.Context) (<-chan domain.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil, ErrAlreadyStarted
	}
	d.started = true

	out := make(chan domain.Detection)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(d.r)
		for scanner.Scan() {
			code := ParseLine(scanner.Text())
			if code == "" {
				continue
			}

			select {
			case out <- domain.Detection{Code: code}:
			case <-d.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Stop ends delivery; it is safe to call more than once.
// When the reader is an io.Closer it is closed so a read blocked on
// input returns and the reading goroutine exits. Other readers keep the
// goroutine parked in Read until the next line or end of input.
func (d *LineDetector) Stop() error {
	var err error
	d.once.Do(func() {
		close(d.stop)
		if c, ok := d.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// ParseLine extracts the code from a detector output line
func ParseLine(line string) string {
	line = strings.TrimSpace(line)
	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		line = line[idx+1:]
	}
	return strings.TrimSpace(line)
}
