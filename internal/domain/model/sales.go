package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places kept for total amounts.
	AmountScale = 2
	// PriceScale is the number of decimal places kept for unit prices.
	PriceScale = 4
)

// Exclusive upper bounds set by the precision of the sales columns.
var (
	MaxUnitPrice   = decimal.New(1, 10)
	MaxTotalAmount = decimal.New(1, 14)
)

type SalesRecord struct {
	ProductName string
	Region      string
	SoldAt      time.Time
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	ImportID    string
}

// NewSalesRecord builds a record and derives TotalAmount from the stored unit price.
func NewSalesRecord(product, region string, soldAt time.Time, quantity int, unitPrice decimal.Decimal) SalesRecord {
	price := unitPrice.Round(PriceScale)
	return SalesRecord{
		ProductName: product,
		Region:      region,
		SoldAt:      soldAt,
		Quantity:    quantity,
		UnitPrice:   price,
		TotalAmount: ComputeTotal(price, quantity),
	}
}

// ComputeTotal returns unitPrice*quantity rounded half-up to two places.
// Round rounds half away from zero, which is half-up for the positive amounts accepted here.
func ComputeTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(AmountScale)
}

// Canonical column keys carried in RawRow.Fields.
const (
	ColumnProductName = "product_name"
	ColumnRegion      = "region"
	ColumnSalesDate   = "sales_date"
	ColumnQuantity    = "quantity"
	ColumnUnitPrice   = "unit_price"
)

// RawRow is one decoded source row, keyed by canonical column key.
type RawRow struct {
	Index  int
	Fields map[string]string
}

func (r RawRow) Get(key string) string {
	return r.Fields[key]
}

// RowError describes why a single source row was rejected.
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }
