package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncOptions tunes buffering and batching. Zero values get sensible
// defaults for a single-node decision engine.
type AsyncOptions struct {
	BufferSize     int           // queued records before new ones are dropped
	BatchSize      int           // target records per storage write
	FlushInterval  time.Duration // max time a partial batch waits in memory
	StorageTimeout time.Duration // per-batch storage deadline
}

// AsyncWriter decouples the decision path from audit storage. Record is
// non-blocking by contract: when the buffer is full the record is dropped
// and counted. Never feed it anything whose loss you cannot tolerate.
type AsyncWriter struct {
	storage Storage
	ch      chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
	closed  atomic.Bool
	opts    AsyncOptions
}

// NewAsyncWriter starts the background flush worker over the given storage.
func NewAsyncWriter(storage Storage, opts AsyncOptions) *AsyncWriter {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	w := &AsyncWriter{
		storage: storage,
		ch:      make(chan Record, opts.BufferSize),
		done:    make(chan struct{}),
		opts:    opts,
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// Record queues a decision record for storage. It never blocks: a full
// buffer drops the record and increments the dropped counter.
func (w *AsyncWriter) Record(rec Record) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}

	select {
	case w.ch <- rec:
		return nil
	default:
		w.dropped.Add(1)
		return nil
	}
}

// Dropped returns how many records were discarded due to a full buffer.
func (w *AsyncWriter) Dropped() int64 {
	return w.dropped.Load()
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	batch := make([]Record, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.FlushInterval)
	defer ticker.Stop()

	// Storage writes run on a background context so caller deadlines cannot
	// reach into the flush path.
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		if err := w.storage.StoreBatch(ctx, batch); err != nil {
			w.dropped.Add(int64(len(batch)))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-w.ch:
			batch = append(batch, rec)
			if len(batch) >= w.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case rec := <-w.ch:
					batch = append(batch, rec)
					if len(batch) >= w.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting records and flushes the queue. The context bounds
// how long the drain may take.
func (w *AsyncWriter) Close(ctx context.Context) error {
	if w.closed.Swap(true) {
		return nil
	}
	close(w.done)

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
