package extraction

import (
	"context"
	"encoding/json"
	"strings"
)

// TransactionType says which side of the ledger a transaction falls on
type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

// Transaction is one ledger entry extracted from a statement
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Balance     *float64        `json:"balance,omitempty"`
}

// Period is the date range a statement covers
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AccountInfo is the optional account metadata printed on a statement
type AccountInfo struct {
	BankName        string  `json:"bankName,omitempty"`
	AccountNumber   string  `json:"accountNumber,omitempty"`
	StatementPeriod *Period `json:"statementPeriod,omitempty"`
}

// Result is the outcome of one provider's extraction
type Result struct {
	Transactions []Transaction `json:"transactions"`
	AccountInfo  *AccountInfo  `json:"accountInfo,omitempty"`
}

// Empty reports whether r is missing or holds no transactions
func (r *Result) Empty() bool {
	return r == nil || len(r.Transactions) == 0
}

// VerificationStatus is the outcome of reconciling two results
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusMismatch VerificationStatus = "mismatch"
)

// Document is a statement prepared for the providers
type Document struct {
	Data     []byte
	MIMEType string
	Pages    int
}

// StructuredExtractor returns a schema-shaped result for a document
type StructuredExtractor interface {
	// Extract returns the provider's result. A provider that produced no
	// output returns an empty result and a nil error.
	Extract(ctx context.Context, doc Document) (*Result, error)
	// Close releases the client's resources
	Close() error
}

// TextExtractor returns free text for a document. It never fails; provider
// errors are reported through TextOutput.Err.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) TextOutput
	Close() error
}

// TextSegment is one block of model output
type TextSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextOutput is the raw output of a TextExtractor: either the content
// segments the provider returned, or a description of what went wrong.
type TextOutput struct {
	Segments []TextSegment
	Err      string
}

// Failed reports whether the provider call failed
func (o TextOutput) Failed() bool {
	return o.Err != ""
}

// Text joins the text segments. ok is false when there are none.
func (o TextOutput) Text() (text string, ok bool) {
	if o.Failed() {
		return "", false
	}
	var b strings.Builder
	for _, seg := range o.Segments {
		if seg.Type != "text" {
			continue
		}
		ok = true
		b.WriteString(seg.Text)
	}
	return b.String(), ok
}

// MarshalJSON encodes the error string when the call failed and the
// segment array otherwise.
func (o TextOutput) MarshalJSON() ([]byte, error) {
	if o.Failed() {
		return json.Marshal(o.Err)
	}
	segments := o.Segments
	if segments == nil {
		segments = []TextSegment{}
	}
	return json.Marshal(segments)
}

// UnmarshalJSON reverses MarshalJSON
func (o *TextOutput) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*o = TextOutput{}
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		*o = TextOutput{Err: msg}
		return nil
	default:
		var segments []TextSegment
		if err := json.Unmarshal(data, &segments); err != nil {
			return err
		}
		*o = TextOutput{Segments: segments}
		return nil
	}
}
