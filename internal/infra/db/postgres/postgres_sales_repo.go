package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
	"sales-import/internal/domain/ports/repository"
)

var _ repository.SalesRepository = (*salesRepo)(nil)

var salesCopyColumns = []string{
	"product_name", "region", "sales_date", "quantity", "unit_price", "total_amount", "import_id", "import_batch",
}

type salesRepo struct{ pool *pgxpool.Pool }

func NewSalesRepo(pool *pgxpool.Pool) *salesRepo {
	return &salesRepo{pool: pool}
}

// InsertBatch streams records with COPY. A single COPY either lands every row or none.
func (r *salesRepo) InsertBatch(ctx context.Context, tx repository.Tx, importID, batchTag string, records []model.SalesRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}

	n, err := ex.CopyFrom(ctx,
		pgx.Identifier{"sales"},
		salesCopyColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			rec := records[i]
			return []interface{}{
				rec.ProductName,
				rec.Region,
				rec.SoldAt,
				int32(rec.Quantity),
				rec.UnitPrice.StringFixed(model.PriceScale),
				rec.TotalAmount.StringFixed(model.AmountScale),
				importID,
				batchTag,
			}, nil
		}),
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	if n != int64(len(records)) {
		return n, fmt.Errorf("%w: copied %d of %d rows", domain.ErrOperationFailed, n, len(records))
	}
	return n, nil
}
