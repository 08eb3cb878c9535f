package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewExpenseRecord(t *testing.T) {
	r, err := NewExpenseRecord("  Lunch ", "15000", "", "Jan 01, 2024")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if r.Title != "Lunch" {
		t.Fatalf("title not trimmed: %q", r.Title)
	}
	if r.Category != DefaultCategory {
		t.Fatalf("expected default category, got %q", r.Category)
	}
	if !r.Amount.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("unexpected amount %s", r.Amount)
	}

	bads := []struct {
		title, amount string
		err           error
	}{
		{"", "1", ErrEmptyTitle},
		{"   ", "1", ErrEmptyTitle},
		{"a", "x", ErrInvalidAmount},
		{"a", "-5", ErrNegativeAmount},
	}
	for i, tc := range bads {
		if _, err := NewExpenseRecord(tc.title, tc.amount, "c", "d"); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestExpenseRecordValidate(t *testing.T) {
	good := ExpenseRecord{Title: "ok", Category: "c", Amount: decimal.NewFromInt(1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (ExpenseRecord{Title: "", Amount: decimal.NewFromInt(1)}).Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected empty title error, got %v", err)
	}
	if err := (ExpenseRecord{Title: "a", Amount: decimal.NewFromInt(-1)}).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative amount error, got %v", err)
	}
}

func TestCheckIndex(t *testing.T) {
	if err := CheckIndex(0, 1); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, i := range []int{-1, 1, 5} {
		err := CheckIndex(i, 1)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected out of range, got %v", i, err)
		}
		var ie *IndexError
		if !errors.As(err, &ie) || ie.Index != i || ie.Len != 1 {
			t.Fatalf("index %d: unexpected error value %#v", i, err)
		}
	}
}
