//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
	red "sales-import/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerImportJobRepo mocks the database repository that the decorator wraps.
type mockInnerImportJobRepo struct {
	CreateFunc       func(ctx context.Context, tx repository.Tx, job *model.ImportJob) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error)
	FinalizeFunc     func(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error
	MarkTimedOutFunc func(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error)
	ListStuckFunc    func(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error)
	ListRecentFunc   func(ctx context.Context, tx repository.Tx, limit int) ([]*model.ImportJob, error)
}

func (m *mockInnerImportJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.ImportJob) error {
	return m.CreateFunc(ctx, tx, job)
}
func (m *mockInnerImportJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerImportJobRepo) Finalize(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error {
	return m.FinalizeFunc(ctx, tx, id, totalRows, successRows, errs)
}
func (m *mockInnerImportJobRepo) MarkTimedOut(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	return m.MarkTimedOutFunc(ctx, tx, id, reason)
}
func (m *mockInnerImportJobRepo) ListStuck(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error) {
	return m.ListStuckFunc(ctx, tx, startedBefore, limit)
}
func (m *mockInnerImportJobRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ImportJob, error) {
	return m.ListRecentFunc(ctx, tx, limit)
}

// mockRedisClient mocks our Redis client wrapper. Unset funcs behave like an empty cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", redis.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, _ time.Duration) (int64, error) {
	return 0, nil
}
func (m *mockRedisClient) Close() error { return nil }
