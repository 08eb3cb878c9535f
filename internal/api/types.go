// Package api holds the JSON shapes exchanged by the HTTP server and the
// remote persister.
package api

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
)

// Record is one expense on the wire. Amount is encoded as a decimal string.
type Record struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

func FromCore(r core.ExpenseRecord) Record {
	return Record{Title: r.Title, Amount: r.Amount, Category: r.Category, Date: r.Date}
}

func FromCoreList(records []core.ExpenseRecord) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = FromCore(r)
	}
	return out
}

func (r Record) Core() core.ExpenseRecord {
	return core.ExpenseRecord{Title: r.Title, Amount: r.Amount, Category: r.Category, Date: r.Date}
}

// CreateRequest accepts amount as a JSON number or string so validation
// happens in one place, core.ParseAmount.
type CreateRequest struct {
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category,omitempty"`
	Date     string          `json:"date,omitempty"`
}

// AmountText returns the raw amount with surrounding quotes removed.
func (r CreateRequest) AmountText() string {
	s := strings.TrimSpace(string(r.Amount))
	if s == "null" {
		return ""
	}
	var unquoted string
	if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
		return unquoted
	}
	return s
}

type Created struct {
	Index  int    `json:"index"`
	Record Record `json:"record"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type Dashboard struct {
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	ByCategory []CategoryTotal `json:"by_category"`
}

func FromOverview(ov core.Overview) Dashboard {
	d := Dashboard{
		Count:      ov.Count,
		Total:      ov.Total,
		ByCategory: make([]CategoryTotal, len(ov.ByCategory)),
	}
	for i, c := range ov.ByCategory {
		d.ByCategory[i] = CategoryTotal{Category: c.Category, Amount: c.Amount}
	}
	return d
}

type Error struct {
	Error string `json:"error"`
}
