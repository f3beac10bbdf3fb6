package statement

import (
	"time"

	"github.com/zombor/statement-parser/internal/extraction"
)

// Status is the processing state of a document
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Document is the persisted record of one uploaded statement
type Document struct {
	ID                 string                        `json:"id"`
	FileName           string                        `json:"file_name"`
	FileURL            string                        `json:"file_url"` // locator the document was fetched from
	FileType           string                        `json:"file_type"`
	StoredPath         string                        `json:"stored_path,omitempty"` // set for files kept in local storage
	Pages              int                           `json:"pages,omitempty"`
	Status             Status                        `json:"status"`
	VerificationStatus extraction.VerificationStatus `json:"verification_status"`
	ParsedData         *extraction.Result            `json:"parsed_data"`
	GeminiResult       *extraction.Result            `json:"gemini_result"`
	DeepseekResult     *extraction.TextOutput        `json:"deepseek_result"`
	SecondaryRows      *extraction.RowReport         `json:"secondary_rows,omitempty"`
	Error              string                        `json:"error,omitempty"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}
