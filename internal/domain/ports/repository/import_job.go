package repository

import (
	"context"
	"time"

	"sales-import/internal/domain/model"
)

type ImportJobRepository interface {
	// Create inserts a new job; a duplicate id yields domain.ErrAlreadyExists.
	Create(ctx context.Context, tx Tx, job *model.ImportJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ImportJob, error)
	// Finalize moves a processing job to completed or error. It returns
	// domain.ErrJobAlreadyFinalized when the job is no longer processing.
	Finalize(ctx context.Context, tx Tx, id string, totalRows, successRows int, errs []string) error
	// MarkTimedOut fails a job only if it is still processing, appending reason
	// to its error text. The bool reports whether the row was changed.
	MarkTimedOut(ctx context.Context, tx Tx, id string, reason string) (bool, error)
	ListStuck(ctx context.Context, tx Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.ImportJob, error)
}
