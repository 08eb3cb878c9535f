package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
)

// parseRows converts a values matrix into records. The first row must carry
// the Title, Amount, Category and Date headers in any order; without it the
// columns are assumed to be in export order.
func parseRows(values [][]interface{}) ([]core.ExpenseRecord, int) {
	if len(values) == 0 {
		return []core.ExpenseRecord{}, 0
	}

	colTitle, colAmount, colCategory, colDate := 0, 1, 2, 3
	start := 0
	headers := toStrings(values[0])
	if indexOf(headers, "Title") != -1 && indexOf(headers, "Amount") != -1 {
		colTitle = indexOf(headers, "Title")
		colAmount = indexOf(headers, "Amount")
		colCategory = indexOf(headers, "Category")
		colDate = indexOf(headers, "Date")
		start = 1
	}

	out := make([]core.ExpenseRecord, 0, len(values)-start)
	skipped := 0
	for _, raw := range values[start:] {
		row := toStrings(raw)
		amount, ok := parseCell(raw, colAmount)
		title := safeGet(row, colTitle)
		if !ok || title == "" {
			skipped++
			continue
		}
		r := core.ExpenseRecord{
			Title:    title,
			Amount:   amount,
			Category: core.NormalizeCategory(safeGet(row, colCategory)),
			Date:     safeGet(row, colDate),
		}
		if err := r.Validate(); err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

// parseCell reads an amount that may arrive as a JSON number or as text.
func parseCell(row []interface{}, idx int) (decimal.Decimal, bool) {
	if idx < 0 || idx >= len(row) {
		return decimal.Zero, false
	}
	switch v := row[idx].(type) {
	case float64:
		if v < 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	default:
		d, err := core.ParseAmount(fmt.Sprint(v))
		return d, err == nil
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
