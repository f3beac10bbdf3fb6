package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// RowReport summarizes how many table rows became transactions
type RowReport struct {
	Total    int      `json:"total"`
	Accepted int      `json:"accepted"`
	Dropped  int      `json:"dropped"`
	Problems []string `json:"problems,omitempty"`
}

// column aliases, matched case-insensitively
var (
	dateColumns        = []string{"date", "transaction date", "posting date", "value date"}
	descriptionColumns = []string{"description", "details", "narrative", "memo", "particulars"}
	debitColumns       = []string{"debit", "debits", "withdrawal", "withdrawals", "money out", "paid out"}
	creditColumns      = []string{"credit", "credits", "deposit", "deposits", "money in", "paid in"}
	balanceColumns     = []string{"running balance", "balance"}
	amountColumns      = []string{"amount"}
	typeColumns        = []string{"type"}
)

var (
	errEmptyAmount        = errors.New("empty amount")
	errAmbiguousSeparator = errors.New("ambiguous decimal separator")
)

var (
	nonNumeric = regexp.MustCompile(`[^0-9.+\-]`)
	// a thousands comma is followed by exactly three digits
	strayComma = regexp.MustCompile(`,(\d{0,2}(\D|$)|\d{4,})`)
)

// TransactionsFromRows validates loosely typed table rows into transactions.
// Rows that fail validation are dropped and recorded in the report. The
// result is nil when no row survives.
//
// Dates printed without a year take it from period. When period is nil
// such dates are kept as printed.
func TransactionsFromRows(rows []Row, period *Period) (*Result, RowReport) {
	report := RowReport{Total: len(rows)}
	transactions := make([]Transaction, 0, len(rows))

	for i, row := range rows {
		tx, err := rowTransaction(normalizeRow(row), period)
		if err != nil {
			report.Dropped++
			report.Problems = append(report.Problems, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		transactions = append(transactions, tx)
	}

	report.Accepted = len(transactions)
	if len(transactions) == 0 {
		return nil, report
	}
	return &Result{Transactions: transactions}, report
}

func normalizeRow(row Row) Row {
	normalized := make(Row, len(row))
	for k, v := range row {
		normalized[strings.ToLower(strings.Join(strings.Fields(k), " "))] = strings.TrimSpace(v)
	}
	return normalized
}

func lookup(row Row, names []string) string {
	for _, name := range names {
		if v, ok := row[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

func rowTransaction(row Row, period *Period) (Transaction, error) {
	rawDate := lookup(row, dateColumns)
	date, err := rowDate(rawDate, period)
	if err != nil {
		return Transaction{}, err
	}

	description := lookup(row, descriptionColumns)
	if description == "" {
		return Transaction{}, fmt.Errorf("missing description")
	}

	amount, txType, err := rowAmount(row)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		Date:        date,
		Description: description,
		Amount:      amount.InexactFloat64(),
		Type:        txType,
	}

	if rawBalance := lookup(row, balanceColumns); rawBalance != "" {
		balance, err := parseMoney(rawBalance)
		switch {
		case errors.Is(err, errEmptyAmount):
		case err != nil:
			return Transaction{}, fmt.Errorf("invalid balance %q: %w", rawBalance, err)
		default:
			b := balance.InexactFloat64()
			tx.Balance = &b
		}
	}

	return tx, nil
}

// rowDate normalizes a printed date to YYYY-MM-DD. A year-less date that
// cannot be placed is returned unchanged.
func rowDate(raw string, period *Period) (string, error) {
	if d, ok := parseDateInPeriod(raw, period); ok {
		return d.Format(isoDate), nil
	}
	if _, _, ok := parseMonthDay(raw); ok {
		return raw, nil
	}
	return "", fmt.Errorf("invalid date %q", raw)
}

// rowAmount reads the amount from Debit/Credit columns, falling back to a
// signed Amount column with an optional Type column
func rowAmount(row Row) (decimal.Decimal, TransactionType, error) {
	if raw := lookup(row, debitColumns); raw != "" {
		d, err := parseMoney(raw)
		switch {
		case errors.Is(err, errEmptyAmount):
		case err != nil:
			return decimal.Zero, "", fmt.Errorf("invalid debit %q: %w", raw, err)
		case !d.IsZero():
			return d.Abs(), Debit, nil
		}
	}
	if raw := lookup(row, creditColumns); raw != "" {
		d, err := parseMoney(raw)
		switch {
		case errors.Is(err, errEmptyAmount):
		case err != nil:
			return decimal.Zero, "", fmt.Errorf("invalid credit %q: %w", raw, err)
		default:
			return d.Abs(), Credit, nil
		}
	}
	if raw := lookup(row, amountColumns); raw != "" {
		d, err := parseMoney(raw)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		switch TransactionType(strings.ToLower(lookup(row, typeColumns))) {
		case Credit:
			return d.Abs(), Credit, nil
		case Debit:
			return d.Abs(), Debit, nil
		}
		if d.IsNegative() {
			return d.Abs(), Debit, nil
		}
		return d, Credit, nil
	}
	return decimal.Zero, "", fmt.Errorf("missing amount")
}

// parseMoney parses a printed amount such as "$1,234.50", "(12.00)" or "-4.50".
// Commas are only accepted as thousands separators; "1.234,56" and "12,50"
// are rejected rather than misread.
func parseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if strayComma.MatchString(s) {
		return decimal.Zero, errAmbiguousSeparator
	}
	if comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, "."); comma >= 0 && dot >= 0 && comma > dot {
		return decimal.Zero, errAmbiguousSeparator
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "DR") {
		negative = true
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(upper, "CR") {
		s = s[:len(s)-2]
	}

	s = nonNumeric.ReplaceAllString(s, "")
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if s == "" || s == "-" || s == "+" {
		return decimal.Zero, errEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, nil
}
