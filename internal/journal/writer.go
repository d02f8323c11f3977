package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/config"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
)

// Direction of a journaled envelope relative to this bridge.
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

// Record is one journaled envelope.
type Record struct {
	Direction     string
	Type          string
	CorrelationID string
	Payload       []byte
	Timestamp     int64 // envelope timestamp, unix milliseconds
	ReceivedAt    time.Time
}

// Writer drains the buffer and writes records to the channel_journal table
// in batches.
type Writer struct {
	cfg    config.JournalConfig
	logger *slog.Logger

	buf *Buffer
	db  *pgxpool.Pool

	batch       []Record
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// WriterMetrics counts writer activity.
type WriterMetrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
}

// NewWriter creates a journal writer over the given buffer and pool.
func NewWriter(cfg config.JournalConfig, buf *Buffer, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		buf:    buf,
		db:     db,
		logger: logger,
		batch:  make([]Record, 0, cfg.BatchSize),
	}
}

// Capture records an envelope on the buffer. Intended to be wired to the
// channel's message and send hooks; it never blocks.
func (w *Writer) Capture(direction string, env envelope.Envelope) {
	raw, err := env.Encode()
	if err != nil {
		return
	}
	w.buf.Push(Record{
		Direction:     direction,
		Type:          env.Type,
		CorrelationID: env.ID,
		Payload:       raw,
		Timestamp:     env.Timestamp,
		ReceivedAt:    time.Now(),
	})
}

// Start begins draining the buffer into the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	w.buf.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Final drain and flush on the shutdown context
	if recs := w.buf.Drain(0); len(recs) > 0 {
		w.batchMu.Lock()
		w.batch = append(w.batch, recs...)
		w.batchMu.Unlock()
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop moves records from the buffer into the pending batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			recs := w.buf.Drain(w.cfg.BatchSize)
			if len(recs) == 0 {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.absorb(recs)
		}
	}
}

// flushLoop periodically flushes the pending batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// absorb appends records to the batch, flushing when it fills.
func (w *Writer) absorb(recs []Record) {
	if len(recs) == 0 {
		return
	}
	w.batchMu.Lock()
	w.batch = append(w.batch, recs...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]Record, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal records",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts records using pgx.Batch.
func (w *Writer) batchInsert(ctx context.Context, recs []Record) error {
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
			INSERT INTO channel_journal (direction, msg_type, correlation_id, payload, envelope_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.Direction, r.Type, r.CorrelationID, r.Payload, r.Timestamp, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range recs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
