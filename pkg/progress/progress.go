// Package progress carries plane-level progress out of long running
// transforms. Sinks are hierarchical: Child returns a sink whose messages are
// prefixed with the child's name.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Sink receives progress. A report with total == 0 is an informational
// message; otherwise completed/total is a progress update and message is an
// optional status.
type Sink interface {
	Report(completed, total int, message string)
	Child(name string) Sink
}

// Nop discards everything.
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Report(int, int, string) {}
func (nopSink) Child(string) Sink       { return nopSink{} }

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// Callback is a function that reports progress.
type Callback func(completed, total int, message string)

// Func adapts a callback to a Sink.
func Func(fn Callback) Sink {
	return &funcSink{fn: fn}
}

type funcSink struct {
	fn     Callback
	prefix string
}

func (s *funcSink) Report(completed, total int, message string) {
	s.fn(completed, total, join(s.prefix, message))
}

func (s *funcSink) Child(name string) Sink {
	return &funcSink{fn: s.fn, prefix: join(s.prefix, name)}
}

// join builds "parent: child" messages.
func join(prefix, msg string) string {
	switch {
	case prefix == "":
		return msg
	case msg == "":
		return prefix
	}
	return prefix + ": " + msg
}

// Log forwards progress to a logger. Progress updates go to V(1), plain
// messages to V(0).
func Log(logger logr.Logger) Sink {
	return &logSink{logger: logger}
}

type logSink struct {
	logger logr.Logger
}

func (s *logSink) Report(completed, total int, message string) {
	if total == 0 {
		s.logger.Info(message)
		return
	}
	s.logger.V(1).Info("progress", "completed", completed, "total", total, "status", message)
}

func (s *logSink) Child(name string) Sink {
	return &logSink{logger: s.logger.WithName(name)}
}

// Bar draws a single-line terminal progress bar with elapsed and remaining
// time. Informational messages are printed on their own line.
type Bar struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	start  time.Time
	prefix string
	now    func() time.Time
}

// NewBar returns a bar of 40 cells writing to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{w: w, width: 40, now: time.Now}
}

func (b *Bar) Child(name string) Sink {
	return &barChild{bar: b, prefix: join(b.prefix, name)}
}

func (b *Bar) Report(completed, total int, message string) {
	b.report(b.prefix, completed, total, message)
}

type barChild struct {
	bar    *Bar
	prefix string
}

func (c *barChild) Report(completed, total int, message string) {
	c.bar.report(c.prefix, completed, total, message)
}

func (c *barChild) Child(name string) Sink {
	return &barChild{bar: c.bar, prefix: join(c.prefix, name)}
}

func (b *Bar) report(prefix string, completed, total int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	message = join(prefix, message)
	if total <= 0 {
		if message != "" {
			fmt.Fprintln(b.w, message)
		}
		return
	}
	now := b.now()
	if b.start.IsZero() || completed == 0 {
		b.start = now
	}
	fraction := float64(completed) / float64(total)
	filled := int(fraction * float64(b.width))

	var bar strings.Builder
	bar.WriteByte('[')
	for i := 0; i < b.width; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	bar.WriteByte(']')

	status := ""
	if message != "" {
		status = " | " + message
	}
	if completed > 0 {
		elapsed := now.Sub(b.start)
		remaining := time.Duration(0)
		if completed < total {
			remaining = time.Duration(float64(elapsed) / float64(completed) * float64(total-completed))
		}
		fmt.Fprintf(b.w, "\r%s %.1f%% (%d/%d) [%s elapsed | %s remaining%s]",
			bar.String(), fraction*100, completed, total, formatDuration(elapsed), formatDuration(remaining), status)
	} else {
		fmt.Fprintf(b.w, "\r%s %.1f%% (%d/%d)%s", bar.String(), fraction*100, completed, total, status)
	}
	if completed >= total {
		fmt.Fprintln(b.w)
	}
}

func formatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	}
	return fmt.Sprintf("%.1fh", s/3600)
}
