package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Spinner represents a progress spinner
type Spinner struct {
	mu         sync.Mutex
	writer     io.Writer
	frames     []string
	frameIndex int
	message    string
	running    bool
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewSpinner creates a spinner on stderr
func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  os.Stderr,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
	}
}

func (s *Spinner) SetWriter(w io.Writer) {
	s.writer = w
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.animate()
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) animate() {
	defer s.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := s.frames[s.frameIndex%len(s.frames)]
			message := s.message
			s.frameIndex++
			s.mu.Unlock()

			fmt.Fprintf(s.writer, "\r%s %s", frame, message)
		}
	}
}

// WithSpinner runs fn while a spinner is shown, but only when stderr is an
// interactive terminal.
func WithSpinner(message string, fn func() error) error {
	if !IsInteractive() {
		return fn()
	}
	spinner := NewSpinner(message)
	spinner.Start()
	err := fn()
	spinner.Stop()
	return err
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Counter is an io.Writer that counts the bytes passing through it and
// redraws a status line at most every interval.
type Counter struct {
	mu       sync.Mutex
	writer   io.Writer
	message  string
	total    int64
	interval time.Duration
	last     time.Time
	quiet    bool
}

func NewCounter(message string) *Counter {
	return &Counter{
		writer:   os.Stderr,
		message:  message,
		interval: 200 * time.Millisecond,
		quiet:    !IsInteractive(),
	}
}

func (c *Counter) SetWriter(w io.Writer) {
	c.writer = w
	c.quiet = false
}

func (c *Counter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total += int64(len(p))
	if !c.quiet && time.Since(c.last) >= c.interval {
		c.last = time.Now()
		fmt.Fprintf(c.writer, "\r%s %s", c.message, FormatBytes(c.total))
	}
	return len(p), nil
}

func (c *Counter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Finish clears the status line.
func (c *Counter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.quiet {
		fmt.Fprint(c.writer, "\r\033[K")
	}
}

func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
