// File: internal/usecase/import_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/logging"
	"sales-import/internal/infra/metrics"
	"sales-import/internal/infra/tabular"
	"sales-import/internal/infra/worker"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// Compile-time check
var _ ImportUseCase = (*importUC)(nil)

type ImportUseCase interface {
	// Submit registers a job for fileName and queues it. It returns as soon as the
	// job is queued; the body is owned (and closed) by the import from then on.
	Submit(ctx context.Context, fileName string, body io.ReadCloser) (string, error)
	GetStatus(ctx context.Context, id string) (*model.ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]*model.ImportJob, error)
	Template() ([]byte, error)
}

// Submitter is the slice of worker.Pool the use case needs.
type Submitter interface {
	Submit(task worker.Task) error
}

type importUC struct {
	jobs      repository.ImportJobRepository
	sales     repository.SalesRepository
	tm        repository.TransactionManager
	pool      Submitter
	batchSize int
	log       *zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewImportUseCase(
	jobs repository.ImportJobRepository,
	sales repository.SalesRepository,
	tm repository.TransactionManager,
	pool Submitter,
	batchSize int,
	logger *zerolog.Logger,
) *importUC {
	l := logger.With().Str("component", "import").Logger()
	return &importUC{
		jobs:      jobs,
		sales:     sales,
		tm:        tm,
		pool:      pool,
		batchSize: batchSize,
		log:       &l,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (u *importUC) Submit(ctx context.Context, fileName string, body io.ReadCloser) (string, error) {
	format, err := tabular.FormatFromFileName(fileName)
	if err != nil {
		_ = body.Close()
		metrics.IncImport("rejected")
		return "", err
	}

	job := model.NewImportJob(u.newID(), fileName, u.now())
	ctx = logging.WithFileName(logging.WithImportID(ctx, job.ID), fileName)
	log := logging.With(ctx, u.log)

	if err := u.jobs.Create(ctx, repository.NoTX, job); err != nil {
		_ = body.Close()
		return "", fmt.Errorf("register import: %w", err)
	}

	task := func(ctx context.Context) error {
		return u.run(ctx, job, format, body)
	}
	if err := u.pool.Submit(task); err != nil {
		_ = body.Close()
		metrics.IncImport("rejected")
		log.Warn().Err(err).Msg("import rejected by worker pool")
		msg := []string{domain.ErrQueueFull.Error()}
		if ferr := u.jobs.Finalize(ctx, repository.NoTX, job.ID, 0, 0, msg); ferr != nil {
			log.Error().Err(ferr).Msg("failed to finalize rejected import")
		}
		if !errors.Is(err, domain.ErrQueueFull) {
			err = fmt.Errorf("%w: %v", domain.ErrQueueFull, err)
		}
		return job.ID, err
	}

	metrics.IncImport("accepted")
	log.Info().Msg("import accepted")
	return job.ID, nil
}

// run drives one job from decoding to finalize. Jobs interrupted by shutdown are
// left in processing for the sweeper.
func (u *importUC) run(ctx context.Context, job *model.ImportJob, format tabular.Format, body io.ReadCloser) error {
	start := time.Now()
	ctx = logging.WithFileName(logging.WithImportID(ctx, job.ID), job.FileName)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "ImportUC.run")()

	if err := ctx.Err(); err != nil {
		_ = body.Close()
		log.Warn().Err(err).Msg("import dropped before it started, leaving job for the sweeper")
		return err
	}

	var (
		errs    []string
		total   int
		invalid int
	)
	writer := NewBatchWriter(u.sales, u.tm, job.ID, u.batchSize, log)

	it, err := tabular.NewDecoder(format, body)
	if err != nil {
		log.Warn().Err(err).Msg("import file could not be opened")
		errs = append(errs, err.Error())
	} else {
		defer it.Close()
		for {
			if err := ctx.Err(); err != nil {
				log.Warn().Err(err).Int("rows", total).Msg("import interrupted, leaving job for the sweeper")
				return err
			}
			row, err := it.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.Warn().Err(err).Int("rows", total).Msg("import file could not be read")
				errs = append(errs, err.Error())
				break
			}

			rec, err := MapSalesRow(row)
			if errors.Is(err, ErrBlankRow) {
				continue
			}
			total++
			if err != nil {
				invalid++
				log.Debug().Err(err).Int("row", row.Index).Msg("row rejected")
				errs = append(errs, err.Error())
				continue
			}
			if err := writer.Add(ctx, rec); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if err := writer.Flush(ctx); err != nil {
		errs = append(errs, err.Error())
	}
	metrics.AddImportRows("invalid", invalid)

	status := model.FinalStatus(errs)
	if err := u.jobs.Finalize(ctx, repository.NoTX, job.ID, total, writer.Persisted(), errs); err != nil {
		if errors.Is(err, domain.ErrJobAlreadyFinalized) {
			log.Warn().Msg("import already finalized elsewhere, keeping the existing result")
			return nil
		}
		return fmt.Errorf("finalize import %s: %w", job.ID, err)
	}

	metrics.IncImport(string(status))
	metrics.ObserveImportDuration(time.Since(start))
	log.Info().
		Str("status", string(status)).
		Int("total_rows", total).
		Int("success_rows", writer.Persisted()).
		Int("errors", len(errs)).
		Dur("elapsed", time.Since(start)).
		Msg("import finished")
	return nil
}

func (u *importUC) GetStatus(ctx context.Context, id string) (*model.ImportJob, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty import id", domain.ErrJobNotFound)
	}
	job, err := u.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}
		return nil, err
	}
	return job, nil
}

func (u *importUC) ListRecent(ctx context.Context, limit int) ([]*model.ImportJob, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return u.jobs.ListRecent(ctx, repository.NoTX, limit)
}

func (u *importUC) Template() ([]byte, error) {
	return tabular.Template()
}
