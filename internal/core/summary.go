package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// Overview is a compact summary of a ledger.
type Overview struct {
	Count      int
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}

// Total sums every amount. An empty slice yields zero.
func Total(records []ExpenseRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// TotalsByCategory groups by exact category text.
func TotalsByCategory(records []ExpenseRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// Summarize builds an Overview. Categories are ordered by amount, largest
// first, ties broken by name.
func Summarize(records []ExpenseRecord) Overview {
	byCat := TotalsByCategory(records)
	cats := make([]CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		cats = append(cats, CategoryAmount{Category: name, Amount: amt})
	}
	sort.Slice(cats, func(i, j int) bool {
		if c := cats[i].Amount.Cmp(cats[j].Amount); c != 0 {
			return c > 0
		}
		return cats[i].Category < cats[j].Category
	})
	return Overview{
		Count:      len(records),
		Total:      Total(records),
		ByCategory: cats,
	}
}
