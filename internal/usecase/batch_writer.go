package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/metrics"
)

const DefaultBatchSize = 1000

// BatchPersistError reports a batch that was rolled back and discarded.
type BatchPersistError struct {
	Batch int
	Rows  int
	Err   error
}

func (e *BatchPersistError) Error() string {
	return fmt.Sprintf("batch %d (%d rows) failed to persist: %v", e.Batch, e.Rows, e.Err)
}

func (e *BatchPersistError) Unwrap() error { return e.Err }

func (e *BatchPersistError) Is(target error) bool { return target == domain.ErrBatchPersist }

// BatchWriter buffers validated records for one import and writes them in
// fixed-size transactional batches. It is not safe for concurrent use.
type BatchWriter struct {
	sales    repository.SalesRepository
	tm       repository.TransactionManager
	importID string
	size     int
	log      zerolog.Logger

	buf       []model.SalesRecord
	batches   int
	persisted int
	failed    int
}

func NewBatchWriter(sales repository.SalesRepository, tm repository.TransactionManager, importID string, size int, logger *zerolog.Logger) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{
		sales:    sales,
		tm:       tm,
		importID: importID,
		size:     size,
		log:      logger.With().Str("component", "batch-writer").Str("import_id", importID).Logger(),
		buf:      make([]model.SalesRecord, 0, size),
	}
}

// Add buffers rec and flushes once the buffer is full. A returned error is a
// *BatchPersistError; the writer stays usable.
func (w *BatchWriter) Add(ctx context.Context, rec model.SalesRecord) error {
	rec.ImportID = w.importID
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes whatever is buffered. The buffer is cleared whether or not the write succeeds.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	w.batches++
	batch := w.batches
	records := w.buf
	w.buf = make([]model.SalesRecord, 0, w.size)
	tag := strings.ToLower(ulid.Make().String())

	var written int64
	err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n, err := w.sales.InsertBatch(ctx, tx, w.importID, tag, records)
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		w.failed += len(records)
		metrics.IncBatchFlush("failed")
		metrics.AddImportRows("failed", len(records))
		w.log.Error().Err(err).Int("batch", batch).Int("rows", len(records)).Str("batch_tag", tag).Msg("batch insert rolled back")
		return &BatchPersistError{Batch: batch, Rows: len(records), Err: err}
	}

	w.persisted += int(written)
	metrics.IncBatchFlush("ok")
	metrics.AddImportRows("persisted", int(written))
	w.log.Debug().Int("batch", batch).Int64("rows", written).Str("batch_tag", tag).Msg("batch persisted")
	return nil
}

// Persisted is the number of rows durably written so far.
func (w *BatchWriter) Persisted() int { return w.persisted }

// Failed is the number of rows lost to rolled back batches.
func (w *BatchWriter) Failed() int { return w.failed }

// Buffered is the number of rows waiting for the next flush.
func (w *BatchWriter) Buffered() int { return len(w.buf) }
