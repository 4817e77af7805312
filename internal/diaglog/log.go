// Package diaglog appends plain-text diagnostic lines of the form
// "[HH:mm:ss] message" to a file. Writes are batched and best-effort.
package diaglog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/motoristapro/offerwatch/internal/trace"
)

// Log accumulates lines and flushes them in batches to an io.Writer.
type Log struct {
	out        io.Writer
	closer     io.Closer
	maxBatch   int
	flushDelay time.Duration
	now        func() time.Time

	mu      sync.Mutex
	items   []string
	timer   *time.Timer
	closed  bool
	batches chan []string
	wg      sync.WaitGroup
}

// Open appends to the file at path, creating it if needed.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open diagnostic log: %w", err)
	}
	l := New(f, DefaultMaxBatch, DefaultFlushDelay)
	l.closer = f
	return l, nil
}

// New creates a batching log over w.
func New(w io.Writer, maxBatch int, flushDelay time.Duration) *Log {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	l := &Log{
		out:        w,
		maxBatch:   maxBatch,
		flushDelay: flushDelay,
		now:        time.Now,
		items:      make([]string, 0, maxBatch),
		batches:    make(chan []string, pendingBatches),
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l
}

// Discard returns a log that drops everything.
func Discard() *Log {
	return New(io.Discard, DefaultMaxBatch, DefaultFlushDelay)
}

// Printf queues one formatted line.
func (l *Log) Printf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Add queues one line stamped with the current wall-clock time.
func (l *Log) Add(msg string) {
	line := "[" + l.now().Format(timestampLayout) + "] " + strings.ReplaceAll(msg, "\n", " ")

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.items = append(l.items, line)

	if len(l.items) >= l.maxBatch {
		l.flushLocked()
		return
	}
	if l.timer == nil {
		l.timer = time.AfterFunc(l.flushDelay, l.timerFlush)
	} else {
		l.timer.Reset(l.flushDelay)
	}
}

func (l *Log) timerFlush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked()
}

func (l *Log) flushLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if len(l.items) == 0 || l.closed {
		return
	}
	items := l.items
	l.items = make([]string, 0, l.maxBatch)

	select {
	case l.batches <- items:
	default:
		trace.Logger(context.Background()).Debug("diagnostic log backlog full, dropping batch", "count", len(items))
	}
}

func (l *Log) writeLoop() {
	defer l.wg.Done()
	for items := range l.batches {
		if _, err := io.WriteString(l.out, strings.Join(items, "\n")+"\n"); err != nil {
			trace.Logger(context.Background()).Debug("diagnostic log write failed", "error", err, "count", len(items))
		}
	}
}

// Flush hands pending lines to the writer.
func (l *Log) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked()
}

// Close flushes remaining lines, waits for the writer and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.flushLocked()
	l.closed = true
	close(l.batches)
	l.mu.Unlock()

	l.wg.Wait()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
