package repository

import (
	"context"

	"sales-import/internal/domain/model"
)

type SalesRepository interface {
	// InsertBatch writes all records or none of them.
	InsertBatch(ctx context.Context, tx Tx, importID, batchTag string, records []model.SalesRecord) (int64, error)
}
