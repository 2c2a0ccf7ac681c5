package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
)

var _ repository.ImportJobRepository = (*importJobRepo)(nil)

const importJobColumns = `id, file_name, status, started_at, ended_at, total_rows, success_rows, error_messages`

type importJobRepo struct{ pool *pgxpool.Pool }

func NewImportJobRepo(pool *pgxpool.Pool) *importJobRepo {
	return &importJobRepo{pool: pool}
}

func (r *importJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.ImportJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO import_jobs (` + importJobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.FileName, string(job.Status), job.StartedAt, job.EndedAt, job.TotalRows, job.SuccessRows, job.ErrorText())
	return mapWriteErr(err)
}

func (r *importJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + importJobColumns + ` FROM import_jobs WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanImportJob(row)
}

func (r *importJobRepo) Finalize(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error {
	const q = `
UPDATE import_jobs
SET status=$2, total_rows=$3, success_rows=$4, error_messages=$5, ended_at=NOW()
WHERE id=$1 AND status='processing';`

	status := model.FinalStatus(errs)
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), totalRows, successRows, model.JoinErrors(errs))
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, tx, id); err != nil {
			return err
		}
		return domain.ErrJobAlreadyFinalized
	}
	return nil
}

func (r *importJobRepo) MarkTimedOut(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	const q = `
UPDATE import_jobs
SET status='error',
    ended_at=NOW(),
    error_messages = CASE WHEN error_messages = '' THEN $2 ELSE error_messages || E'\n' || $2 END
WHERE id=$1 AND status='processing';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, reason)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *importJobRepo) ListStuck(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error) {
	const q = `
SELECT ` + importJobColumns + `
FROM import_jobs
WHERE status='processing' AND started_at < $1
ORDER BY started_at
LIMIT $2;`
	return r.list(ctx, tx, q, startedBefore, limit)
}

func (r *importJobRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ImportJob, error) {
	const q = `SELECT ` + importJobColumns + ` FROM import_jobs ORDER BY started_at DESC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *importJobRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ImportJob, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.ImportJob
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanImportJob(row pgx.Row) (*model.ImportJob, error) {
	var (
		j       model.ImportJob
		status  string
		errText string
	)
	if err := row.Scan(&j.ID, &j.FileName, &status, &j.StartedAt, &j.EndedAt, &j.TotalRows, &j.SuccessRows, &errText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Status = model.ImportStatus(status)
	j.Errors = model.SplitErrors(errText)
	return &j, nil
}
