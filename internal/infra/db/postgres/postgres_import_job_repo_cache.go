package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/metrics"
	red "sales-import/internal/infra/redis"
)

var _ repository.ImportJobRepository = (*importJobRepoCacheDecorator)(nil)

// importJobRepoCacheDecorator caches finished job snapshots. Jobs still
// processing are always read from the inner repository.
type importJobRepoCacheDecorator struct {
	inner repository.ImportJobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewImportJobRepoCacheDecorator(inner repository.ImportJobRepository, cache red.RedisClient, ttl time.Duration) repository.ImportJobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &importJobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func importJobKey(id string) string { return fmt.Sprintf("import_job:%s", id) }

func (d *importJobRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error) {
	key := importJobKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var job model.ImportJob
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncJobCacheLookup("hit")
			return &job, nil
		}
	}

	metrics.IncJobCacheLookup("miss")
	job, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		if b, err := json.Marshal(job); err == nil {
			_ = d.cache.Set(ctx, key, b, d.ttl)
		}
	}
	return job, nil
}

func (d *importJobRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, job *model.ImportJob) error {
	return d.inner.Create(ctx, tx, job)
}

func (d *importJobRepoCacheDecorator) Finalize(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error {
	if err := d.inner.Finalize(ctx, tx, id, totalRows, successRows, errs); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, importJobKey(id))
	return nil
}

func (d *importJobRepoCacheDecorator) MarkTimedOut(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	updated, err := d.inner.MarkTimedOut(ctx, tx, id, reason)
	if err != nil {
		return false, err
	}
	if updated {
		_ = d.cache.Del(ctx, importJobKey(id))
	}
	return updated, nil
}

func (d *importJobRepoCacheDecorator) ListStuck(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error) {
	return d.inner.ListStuck(ctx, tx, startedBefore, limit)
}

func (d *importJobRepoCacheDecorator) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ImportJob, error) {
	return d.inner.ListRecent(ctx, tx, limit)
}
