package audit

import (
	"context"
	"sync"
	"time"
)

// writerBuffer is the queue size of a Writer. Entries beyond it are
// dropped so command handling never waits on SQLite.
const writerBuffer = 256

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Logger is the optional logger used by Writer.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Writer queues entries and writes them serially on its own goroutine.
type Writer struct {
	repo   Repository
	logger Logger
	ch     chan *Entry

	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewWriter creates a Writer over repo. Call Start to begin writing.
func NewWriter(repo Repository, logger Logger) *Writer {
	return &Writer{
		repo:   repo,
		logger: logger,
		ch:     make(chan *Entry, writerBuffer),
	}
}

// Record enqueues an entry (best-effort). It never blocks.
func (w *Writer) Record(entry *Entry) {
	select {
	case w.ch <- entry:
	default:
		if w.logger != nil {
			w.logger.Warn("command log queue full, dropping entry",
				"device_id", entry.DeviceID,
				"command", entry.Command)
		}
	}
}

// Start runs the drain loop until ctx is cancelled. Entries still queued
// at cancellation are written before Wait returns.
func (w *Writer) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.drain(ctx)
	})
}

// Wait blocks until the drain loop has exited.
func (w *Writer) Wait() {
	w.wg.Wait()
}

func (w *Writer) drain(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case entry := <-w.ch:
			w.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-w.ch:
					w.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(entry *Entry) {
	// The caller's context may already be cancelled during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.repo.Create(ctx, entry); err != nil && w.logger != nil {
		w.logger.Error("command log write failed",
			"device_id", entry.DeviceID,
			"command", entry.Command,
			"error", err)
	}
}
