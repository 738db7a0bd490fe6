package transcript

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize is the number of records buffered before new ones are dropped.
const DefaultQueueSize = 256

// Appender persists records.
type Appender interface {
	Append(ctx context.Context, r Record) (string, error)
}

// Writer appends records on a background goroutine. Record never blocks.
type Writer struct {
	dst   Appender
	queue chan Record
	log   zerolog.Logger

	written atomic.Uint64
	dropped atomic.Uint64

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// NewWriter starts a writer with the given queue size.
func NewWriter(dst Appender, queueSize int, logger *zerolog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := log.With().Str("component", "transcript").Logger()
	if logger != nil {
		l = *logger
	}

	w := &Writer{
		dst:     dst,
		queue:   make(chan Record, queueSize),
		log:     l,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Record queues r. It reports false when the queue is full or the writer is
// closed, in which case the record is dropped.
func (w *Writer) Record(r Record) bool {
	select {
	case <-w.closing:
		w.dropped.Add(1)
		return false
	default:
	}

	select {
	case w.queue <- r:
		return true
	default:
		w.dropped.Add(1)
		w.log.Warn().
			Str("session", r.SessionID).
			Int("queue_len", len(w.queue)).
			Msg("transcript queue full, record dropped")
		return false
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case r := <-w.queue:
			w.write(r)
		case <-w.closing:
			// Drain what is already queued.
			for {
				select {
				case r := <-w.queue:
					w.write(r)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(r Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := w.dst.Append(ctx, r); err != nil {
		w.log.Error().Err(err).Str("session", r.SessionID).Msg("failed to append transcript record")
		return
	}
	w.written.Add(1)
	if d := time.Since(start); d > 100*time.Millisecond {
		w.log.Warn().Dur("duration", d).Msg("slow transcript write")
	}
}

// Written returns how many records were persisted.
func (w *Writer) Written() uint64 { return w.written.Load() }

// Dropped returns how many records were dropped.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Close stops accepting records, flushes the queue and waits.
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.closing) })
	<-w.done
}
