package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCategory is used when a record is created without a category.
const DefaultCategory = "General"

// DateLayout is the display layout used when a caller asks for today's date.
const DateLayout = "Jan 02, 2006"

type (
	// ExpenseRecord is one ledger entry. Date is an opaque display label.
	ExpenseRecord struct {
		Title    string
		Category string
		Date     string
		Amount   decimal.Decimal
	}

	// IndexError reports an out of range ledger position.
	IndexError struct {
		Index int
		Len   int
	}
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDecode          = errors.New("decode ledger")

	ErrEmptyTitle     = fmt.Errorf("%w: empty title", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNegativeAmount = fmt.Errorf("%w: negative amount", ErrValidation)
)

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// NewExpenseRecord validates raw user input and builds a record.
// An empty category falls back to DefaultCategory.
func NewExpenseRecord(title, amount, category, date string) (ExpenseRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ExpenseRecord{}, ErrEmptyTitle
	}
	amt, err := ParseAmount(amount)
	if err != nil {
		return ExpenseRecord{}, err
	}
	return ExpenseRecord{
		Title:    title,
		Category: NormalizeCategory(category),
		Date:     strings.TrimSpace(date),
		Amount:   amt,
	}, nil
}

// NormalizeCategory trims the label and applies the default.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

func (r ExpenseRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	return CheckAmount(r.Amount)
}

// Equal compares field values; amounts compare numerically.
func (r ExpenseRecord) Equal(o ExpenseRecord) bool {
	return r.Title == o.Title &&
		r.Category == o.Category &&
		r.Date == o.Date &&
		r.Amount.Equal(o.Amount)
}

// CheckIndex returns an *IndexError when i is not a valid position in a
// sequence of length n.
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{Index: i, Len: n}
	}
	return nil
}
