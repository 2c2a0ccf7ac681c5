//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/worker"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func cloneJob(j *model.ImportJob) *model.ImportJob {
	cp := *j
	cp.Errors = append([]string{}, j.Errors...)
	if j.EndedAt != nil {
		t := *j.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// =============================
// Repositories
// =============================

// ---- Mock ImportJobRepository ----

// MockImportJobRepo keeps jobs in memory and applies the same compare-and-set
// rules as the Postgres implementation.
type MockImportJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ImportJob

	CreateFunc   func(ctx context.Context, tx repository.Tx, job *model.ImportJob) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error)
	FinalizeFunc func(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error

	FinalizeCalls int
}

var _ repository.ImportJobRepository = (*MockImportJobRepo)(nil)

func NewMockImportJobRepo() *MockImportJobRepo {
	return &MockImportJobRepo{jobs: make(map[string]*model.ImportJob)}
}

func (m *MockImportJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.ImportJob) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *MockImportJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ImportJob, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MockImportJobRepo) Finalize(ctx context.Context, tx repository.Tx, id string, totalRows, successRows int, errs []string) error {
	m.mu.Lock()
	m.FinalizeCalls++
	m.mu.Unlock()
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, tx, id, totalRows, successRows, errs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.ImportStatusProcessing {
		return domain.ErrJobAlreadyFinalized
	}
	now := time.Now()
	j.Status = model.FinalStatus(errs)
	j.TotalRows = totalRows
	j.SuccessRows = successRows
	j.Errors = append([]string{}, errs...)
	j.EndedAt = &now
	return nil
}

func (m *MockImportJobRepo) MarkTimedOut(ctx context.Context, tx repository.Tx, id string, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != model.ImportStatusProcessing {
		return false, nil
	}
	now := time.Now()
	j.Status = model.ImportStatusError
	j.Errors = append(j.Errors, reason)
	j.EndedAt = &now
	return true, nil
}

func (m *MockImportJobRepo) ListStuck(ctx context.Context, tx repository.Tx, startedBefore time.Time, limit int) ([]*model.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ImportJob
	for _, j := range m.jobs {
		if j.Status == model.ImportStatusProcessing && j.StartedAt.Before(startedBefore) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.Before(out[b].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockImportJobRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ImportJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.After(out[b].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockImportJobRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// ---- Mock SalesRepository ----

type MockSalesRepo struct {
	mu      sync.Mutex
	Rows    []model.SalesRecord
	Batches []string // batch tags in insert order
	Calls   int

	InsertBatchFunc func(ctx context.Context, tx repository.Tx, importID, batchTag string, records []model.SalesRecord) (int64, error)
}

var _ repository.SalesRepository = (*MockSalesRepo)(nil)

func NewMockSalesRepo() *MockSalesRepo { return &MockSalesRepo{} }

func (m *MockSalesRepo) InsertBatch(ctx context.Context, tx repository.Tx, importID, batchTag string, records []model.SalesRecord) (int64, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.InsertBatchFunc != nil {
		n, err := m.InsertBatchFunc(ctx, tx, importID, batchTag, records)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			n = int64(len(records))
		}
		m.store(batchTag, records)
		return n, nil
	}
	m.store(batchTag, records)
	return int64(len(records)), nil
}

func (m *MockSalesRepo) store(tag string, records []model.SalesRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, records...)
	m.Batches = append(m.Batches, tag)
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Worker pool
// =============================

// MockSubmitter runs tasks inline by default so tests observe the finished job
// right after Submit returns.
type MockSubmitter struct {
	mu     sync.Mutex
	Queued []worker.Task
	Errs   []error

	SubmitFunc func(task worker.Task) error
}

func (m *MockSubmitter) Submit(task worker.Task) error {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(task)
	}
	err := task(context.Background())
	m.mu.Lock()
	m.Errs = append(m.Errs, err)
	m.mu.Unlock()
	return nil
}
