// Package spinner renders a single-line progress indicator for long agent
// invocations.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

// Spinner animates a message on a single terminal line. The message can be
// swapped while the spinner runs.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	width   int

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

// Start begins animating the given message on w.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.run()
	return s
}

// SetMessage replaces the displayed message.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	<-s.cleared
}

func (s *Spinner) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2)) //nolint:errcheck
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-ticker.C:
			s.mu.Lock()
			if len(s.message) > s.width {
				s.width = len(s.message)
			}
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], s.message) //nolint:errcheck
			s.mu.Unlock()
			i++
		}
	}
}
