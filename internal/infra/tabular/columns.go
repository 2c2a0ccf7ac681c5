package tabular

import (
	"strings"

	"sales-import/internal/domain/model"
)

type Column struct {
	Key   string
	Label string
	Alias string
}

// Columns is the fixed import layout. Delimited files bind fields in this order.
var Columns = []Column{
	{Key: model.ColumnProductName, Label: "产品名称", Alias: "product name"},
	{Key: model.ColumnRegion, Label: "销售区域", Alias: "sales region"},
	{Key: model.ColumnSalesDate, Label: "销售日期", Alias: "sales date"},
	{Key: model.ColumnQuantity, Label: "销售数量", Alias: "sales quantity"},
	{Key: model.ColumnUnitPrice, Label: "销售单价", Alias: "unit price"},
}

// Matches reports whether a header cell names this column.
func (c Column) Matches(header string) bool {
	h := normalizeHeader(header)
	return h == normalizeHeader(c.Label) || h == normalizeHeader(c.Alias) || h == c.Key
}

func Labels() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Label
	}
	return out
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
