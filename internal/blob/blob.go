// Package blob converts a ledger to and from the single serialized value kept
// under one settings key.
//
// The layout is a JSON array of objects with title, amount, category and date.
// Amount is written as a bare JSON number.
package blob

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
)

// EmptyBlob is the representation of an empty ledger.
const EmptyBlob = "[]"

type wireRecord struct {
	Title    *string      `json:"title"`
	Amount   *json.Number `json:"amount"`
	Category *string      `json:"category"`
	Date     *string      `json:"date"`
}

// Encode serializes records in order.
func Encode(records []core.ExpenseRecord) ([]byte, error) {
	out := make([]wireRecord, len(records))
	for i := range records {
		r := records[i]
		amount := json.Number(r.Amount.String())
		out[i] = wireRecord{
			Title:    &r.Title,
			Amount:   &amount,
			Category: &r.Category,
			Date:     &r.Date,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}

// Decode parses a blob. Elements that are not objects, miss a field, carry an
// unusable amount or an empty title are dropped and counted in skipped.
// Only a top-level failure returns an error, wrapping core.ErrDecode.
func Decode(data []byte) (records []core.ExpenseRecord, skipped int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []core.ExpenseRecord{}, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}

	records = make([]core.ExpenseRecord, 0, len(raw))
	for _, elem := range raw {
		r, ok := decodeRecord(elem)
		if !ok {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}

func decodeRecord(elem json.RawMessage) (core.ExpenseRecord, bool) {
	var w wireRecord
	if err := json.Unmarshal(elem, &w); err != nil {
		return core.ExpenseRecord{}, false
	}
	if w.Title == nil || w.Amount == nil || w.Category == nil || w.Date == nil {
		return core.ExpenseRecord{}, false
	}
	amount, err := decimal.NewFromString(w.Amount.String())
	if err != nil {
		return core.ExpenseRecord{}, false
	}
	r := core.ExpenseRecord{
		Title:    *w.Title,
		Category: *w.Category,
		Date:     *w.Date,
		Amount:   amount,
	}
	if err := r.Validate(); err != nil {
		return core.ExpenseRecord{}, false
	}
	return r, true
}
