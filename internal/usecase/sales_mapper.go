package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
)

// SalesDateLayout is the only accepted sales date form.
const SalesDateLayout = "2006-01-02 15:04:05"

// Numeric cells must be plain decimals of bounded length before any arithmetic;
// exponent forms such as "1e-30000000" never reach the decimal package.
const maxNumericLen = 32

var (
	quantityPattern = regexp.MustCompile(`^[+-]?\d+(\.0+)?$`)
	pricePattern    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)
)

// ErrBlankRow marks a row with no values at all. Callers skip it silently.
var ErrBlankRow = errors.New("blank row")

// MapSalesRow validates a decoded row and converts it into a sales record.
// Every rule is checked so the returned *model.RowError lists all violations.
func MapSalesRow(row model.RawRow) (model.SalesRecord, error) {
	product := strings.TrimSpace(row.Get(model.ColumnProductName))
	region := strings.TrimSpace(row.Get(model.ColumnRegion))
	rawDate := strings.TrimSpace(row.Get(model.ColumnSalesDate))
	rawQty := strings.TrimSpace(row.Get(model.ColumnQuantity))
	rawPrice := strings.TrimSpace(row.Get(model.ColumnUnitPrice))

	if product == "" && region == "" && rawDate == "" && rawQty == "" && rawPrice == "" {
		return model.SalesRecord{}, ErrBlankRow
	}

	var result *multierror.Error
	if product == "" {
		result = multierror.Append(result, errors.New("product name is required"))
	}
	if region == "" {
		result = multierror.Append(result, errors.New("sales region is required"))
	}

	var soldAt time.Time
	if rawDate == "" {
		result = multierror.Append(result, errors.New("sales date is required"))
	} else {
		t, err := time.ParseInLocation(SalesDateLayout, rawDate, time.UTC)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("sales date %q must match yyyy-MM-dd HH:mm:ss", rawDate))
		}
		soldAt = t
	}

	qty, err := parseQuantity(rawQty)
	if err != nil {
		result = multierror.Append(result, err)
	}
	price, err := parseUnitPrice(rawPrice)
	if err != nil {
		result = multierror.Append(result, err)
	}

	if qty > 0 && price.IsPositive() {
		if total := model.ComputeTotal(price.Round(model.PriceScale), qty); total.GreaterThanOrEqual(model.MaxTotalAmount) {
			result = multierror.Append(result, fmt.Errorf("total amount %s is too large", total.StringFixed(model.AmountScale)))
		}
	}

	if result != nil {
		result.ErrorFormat = joinReasons
		return model.SalesRecord{}, &model.RowError{
			Row:    row.Index,
			Reason: result.Error(),
			Err:    fmt.Errorf("%w: %w", domain.ErrRowValidation, result),
		}
	}
	return model.NewSalesRecord(product, region, soldAt, qty, price), nil
}

// parseQuantity accepts whole numbers, including spreadsheet renderings like "12.0".
func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return 0, errors.New("sales quantity is required")
	}
	if len(raw) > maxNumericLen || !quantityPattern.MatchString(raw) {
		return 0, fmt.Errorf("sales quantity %q must be a whole number", raw)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("sales quantity %q must be a whole number", raw)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("sales quantity %q must be greater than 0", raw)
	}
	if d.GreaterThan(decimal.NewFromInt(1<<31 - 1)) {
		return 0, fmt.Errorf("sales quantity %q is too large", raw)
	}
	return int(d.IntPart()), nil
}

func parseUnitPrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, errors.New("unit price is required")
	}
	if len(raw) > maxNumericLen || !pricePattern.MatchString(raw) {
		return decimal.Zero, fmt.Errorf("unit price %q must be a number", raw)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unit price %q must be a number", raw)
	}
	if !d.Round(model.AmountScale).IsPositive() {
		return decimal.Zero, fmt.Errorf("unit price %q must be greater than 0", raw)
	}
	if d.Round(model.PriceScale).GreaterThanOrEqual(model.MaxUnitPrice) {
		return decimal.Zero, fmt.Errorf("unit price %q is too large", raw)
	}
	return d, nil
}

func joinReasons(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
