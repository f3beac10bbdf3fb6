package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Comparator decides whether two transactions describe the same entry
type Comparator interface {
	Equal(a, b Transaction) bool
}

// ComparatorFunc adapts a function to Comparator
type ComparatorFunc func(a, b Transaction) bool

func (f ComparatorFunc) Equal(a, b Transaction) bool {
	return f(a, b)
}

// ExactComparator requires every field to match exactly
var ExactComparator Comparator = ComparatorFunc(func(a, b Transaction) bool {
	if a.Date != b.Date || a.Description != b.Description || a.Amount != b.Amount || a.Type != b.Type {
		return false
	}
	if a.Balance == nil || b.Balance == nil {
		return a.Balance == nil && b.Balance == nil
	}
	return *a.Balance == *b.Balance
})

// NormalizedComparator tolerates formatting differences: dates are parsed,
// descriptions are case and whitespace folded, amounts are compared to the
// cent by magnitude. Balances are compared only when both sides have one.
var NormalizedComparator Comparator = ComparatorFunc(func(a, b Transaction) bool {
	if normalizeDateValue(a.Date) != normalizeDateValue(b.Date) {
		return false
	}
	if normalizeDescription(a.Description) != normalizeDescription(b.Description) {
		return false
	}
	if !strings.EqualFold(string(a.Type), string(b.Type)) {
		return false
	}
	if !centsEqual(abs(a.Amount), abs(b.Amount)) {
		return false
	}
	if a.Balance != nil && b.Balance != nil {
		return centsEqual(*a.Balance, *b.Balance)
	}
	return true
})

// ComparatorByName resolves "normalized" or "exact"
func ComparatorByName(name string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normalized":
		return NormalizedComparator, nil
	case "exact":
		return ExactComparator, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q", name)
	}
}

// Reconcile compares two provider results in order. It is pending when
// either side is missing or holds no transactions.
func Reconcile(a, b *Result, cmp Comparator) VerificationStatus {
	if a.Empty() || b.Empty() {
		return StatusPending
	}
	if cmp == nil {
		cmp = NormalizedComparator
	}
	if len(a.Transactions) != len(b.Transactions) {
		return StatusMismatch
	}
	for i := range a.Transactions {
		if !cmp.Equal(a.Transactions[i], b.Transactions[i]) {
			return StatusMismatch
		}
	}
	return StatusVerified
}

func normalizeDateValue(value string) string {
	if d, ok := parseDate(value); ok {
		return d.Format(isoDate)
	}
	return strings.TrimSpace(value)
}

func normalizeDescription(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func centsEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
