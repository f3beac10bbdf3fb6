package statement

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zombor/statement-parser/internal/extraction"
	"github.com/zombor/statement-parser/internal/logger"
)

var (
	// ErrInvalidRequest is returned for ingestion requests missing a document
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNothingToExport is returned when a document has no parsed data yet
	ErrNothingToExport = errors.New("document has no parsed data")
	// ErrAlreadyProcessed is returned when a completed document is submitted again
	ErrAlreadyProcessed = errors.New("document was already processed")
)

// IDGenerator generates unique IDs for documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Extractors are the providers and comparator the pipeline runs with
type Extractors struct {
	Primary    extraction.StructuredExtractor
	Secondary  extraction.TextExtractor
	Comparator extraction.Comparator
}

// IngestRequest is the body of a processing request: either a locator or
// an inline payload
type IngestRequest struct {
	FileURL    string `json:"fileUrl"`
	FileBuffer string `json:"fileBuffer"`
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
}

// Validate checks that the request names a document
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.FileURL) == "" && strings.TrimSpace(r.FileBuffer) == "" {
		return fmt.Errorf("%w: fileUrl or fileBuffer is required", ErrInvalidRequest)
	}
	return nil
}

// IngestResponse is returned to the caller after processing
type IngestResponse struct {
	Status string     `json:"status"`
	Data   IngestData `json:"data"`
}

// IngestData carries both raw provider outputs and the reconciliation outcome
type IngestData struct {
	DocumentID         string                        `json:"documentId"`
	VerificationStatus extraction.VerificationStatus `json:"verificationStatus"`
	ProviderA          *extraction.Result            `json:"providerA"`
	ProviderB          extraction.TextOutput         `json:"providerB"`
}

// Service runs the extraction pipeline and manages document records
type Service struct {
	db          DB
	storage     Storage
	fetcher     Fetcher
	primary     extraction.StructuredExtractor
	secondary   extraction.TextExtractor
	comparator  extraction.Comparator
	parser      *extraction.TableParser
	locks       Locker
	idGenerator IDGenerator
	timeSource  TimeSource
	log         zerolog.Logger
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, storage Storage, fetcher Fetcher, extractors Extractors, locks Locker, log zerolog.Logger) *Service {
	return NewServiceWithDeps(db, storage, fetcher, extractors, locks, &uuidGenerator{}, &defaultTimeSource{}, log)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, fetcher Fetcher, extractors Extractors, locks Locker, idGen IDGenerator, timeSrc TimeSource, log zerolog.Logger) *Service {
	comparator := extractors.Comparator
	if comparator == nil {
		comparator = extraction.NormalizedComparator
	}
	return &Service{
		db:          db,
		storage:     storage,
		fetcher:     fetcher,
		primary:     extractors.Primary,
		secondary:   extractors.Secondary,
		comparator:  comparator,
		parser:      extraction.NewTableParser(),
		locks:       locks,
		idGenerator: idGen,
		timeSource:  timeSrc,
		log:         log,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	// keep only alphanumerics, hyphens and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = strings.TrimSpace(reg.ReplaceAllString(base, " "))
	base = strings.ReplaceAll(base, " ", "_")

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "statement"
	}

	return base + regexp.MustCompile(`[^a-z0-9.]`).ReplaceAllString(ext, "")
}

// storeFile saves data under a timestamped, randomly suffixed name and
// returns its locator
func (s *Service) storeFile(filename string, data []byte) (string, string, error) {
	name := fmt.Sprintf("%d-%s-%s", s.timeSource.Now().UnixMilli(), uuid.NewString()[:8], sanitizeFilename(filename))
	saved, err := s.storage.Save(name, data)
	if err != nil {
		return "", "", fmt.Errorf("saving file: %w", err)
	}
	return saved, localScheme + saved, nil
}

// Ingest runs both providers over the document named by req, reconciles
// their results and persists the outcome on the document record.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		data       []byte
		storedPath string
		locator    = strings.TrimSpace(req.FileURL)
		fileType   = extraction.NormalizeMIMEType(req.FileType)
	)

	if locator == "" {
		decoded, uriType, err := DecodeInline(req.FileBuffer)
		if err != nil {
			return nil, s.fail(s.newDocument("", req.FileName, fileType), err)
		}
		if fileType == "" {
			fileType = extraction.NormalizeMIMEType(uriType)
		}
		storedPath, locator, err = s.storeFile(req.FileName, decoded)
		if err != nil {
			return nil, s.fail(s.newDocument("", req.FileName, fileType), err)
		}
		data = decoded
	}

	release, err := s.locks.Acquire(locator)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.openDocument(locator, req.FileName, fileType)
	if err != nil {
		return nil, err
	}
	if storedPath != "" {
		doc.StoredPath = storedPath
	}

	log := logger.FromContext(ctx, s.log).With().Str("document_id", doc.ID).Str("locator", locator).Logger()

	if data == nil {
		data, err = s.fetcher.Fetch(ctx, locator)
		if err != nil {
			return nil, s.fail(doc, err)
		}
	}

	prepared, err := extraction.PrepareDocument(data, fileType)
	if err != nil {
		return nil, s.fail(doc, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	doc.Pages = prepared.Pages
	if doc.FileType == "" {
		doc.FileType = prepared.MIMEType
	}

	primary, err := s.primary.Extract(ctx, prepared)
	if err != nil {
		log.Error().Err(err).Msg("Primary extraction failed")
		primary = nil
	}

	secondaryOut := s.secondary.Extract(ctx, prepared)
	secondary, report := s.parseSecondary(secondaryOut, statementPeriod(primary), log)

	status := extraction.Reconcile(primary, secondary, s.comparator)

	doc.ParsedData = primary
	doc.GeminiResult = primary
	doc.DeepseekResult = &secondaryOut
	doc.SecondaryRows = report
	doc.Status = StatusCompleted
	doc.VerificationStatus = status
	doc.Error = ""
	doc.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	log.Info().
		Str("verification_status", string(status)).
		Bool("primary_ok", primary != nil).
		Bool("secondary_ok", !secondaryOut.Failed()).
		Msg("Document processed")

	return &IngestResponse{
		Status: "success",
		Data: IngestData{
			DocumentID:         doc.ID,
			VerificationStatus: status,
			ProviderA:          primary,
			ProviderB:          secondaryOut,
		},
	}, nil
}

// parseSecondary turns the text provider's output into a validated result.
// Any parse failure yields a nil result, which reconciles as pending.
func (s *Service) parseSecondary(out extraction.TextOutput, period *extraction.Period, log zerolog.Logger) (*extraction.Result, *extraction.RowReport) {
	text, ok := out.Text()
	if !ok {
		return nil, nil
	}

	table, err := extraction.TableFromEnvelope(text)
	if err != nil {
		log.Warn().Err(err).Msg("Secondary output has no table")
		return nil, nil
	}

	rows, err := s.parser.Records(table)
	if err != nil {
		log.Warn().Err(err).Msg("Secondary table could not be parsed")
		return nil, nil
	}

	result, report := extraction.TransactionsFromRows(rows, period)
	if report.Dropped > 0 {
		log.Warn().Int("dropped", report.Dropped).Strs("problems", report.Problems).Msg("Dropped invalid secondary rows")
	}
	return result, &report
}

// statementPeriod is the period the primary provider read off the statement
// header, used to date year-less table rows
func statementPeriod(primary *extraction.Result) *extraction.Period {
	if primary == nil || primary.AccountInfo == nil {
		return nil
	}
	return primary.AccountInfo.StatementPeriod
}

func (s *Service) newDocument(locator, fileName, fileType string) *Document {
	now := s.timeSource.Now()
	if fileName == "" && locator != "" {
		fileName = filepath.Base(locator)
	}
	return &Document{
		ID:                 s.idGenerator.Generate(),
		FileName:           fileName,
		FileURL:            locator,
		FileType:           fileType,
		Status:             StatusProcessing,
		VerificationStatus: extraction.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// openDocument loads the record for locator, creating it when the upload
// flow did not. Completed documents are not processed again; failed ones are
// retried.
func (s *Service) openDocument(locator, fileName, fileType string) (*Document, error) {
	doc, err := s.db.FindDocumentByLocator(locator)
	switch {
	case err == nil && doc.Status == StatusCompleted:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, doc.ID)
	case err == nil:
		return doc, nil
	case errors.Is(err, ErrDocumentNotFound):
		doc = s.newDocument(locator, fileName, fileType)
		if err := s.db.SaveDocument(doc); err != nil {
			return nil, fmt.Errorf("saving document: %w", err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("finding document: %w", err)
	}
}

// fail marks doc failed and returns cause
func (s *Service) fail(doc *Document, cause error) error {
	doc.Status = StatusFailed
	doc.Error = cause.Error()
	doc.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveDocument(doc); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to record document failure")
	}
	s.log.Error().Err(cause).Str("document_id", doc.ID).Str("locator", doc.FileURL).Msg("Document processing failed")
	return cause
}

// ProcessUpload stores an uploaded statement, creates its record and runs
// the pipeline over it
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*IngestResponse, error) {
	contentType = extraction.NormalizeMIMEType(contentType)
	if contentType != "application/pdf" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: only PDF and image files are accepted, got %q", extraction.ErrUnsupportedDocument, contentType)
	}

	storedPath, locator, err := s.storeFile(filename, data)
	if err != nil {
		return nil, err
	}

	doc := s.newDocument(locator, filename, contentType)
	doc.StoredPath = storedPath
	if err := s.db.SaveDocument(doc); err != nil {
		if delErr := s.storage.Delete(storedPath); delErr != nil {
			s.log.Warn().Err(delErr).Str("file", storedPath).Msg("Failed to delete file")
		}
		return nil, fmt.Errorf("saving document: %w", err)
	}

	return s.Ingest(ctx, IngestRequest{FileURL: locator, FileName: filename, FileType: contentType})
}

// GetDocument retrieves a document by ID
func (s *Service) GetDocument(id string) (*Document, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first
func (s *Service) ListDocuments() ([]*Document, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its stored file
func (s *Service) DeleteDocument(id string) error {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return fmt.Errorf("getting document for deletion: %w", err)
	}

	if doc.StoredPath != "" {
		if err := s.storage.Delete(doc.StoredPath); err != nil {
			s.log.Warn().Err(err).Str("file", doc.StoredPath).Msg("Failed to delete file")
		}
	}

	if err := s.db.DeleteDocument(id); err != nil {
		return fmt.Errorf("deleting document from database: %w", err)
	}
	return nil
}

// GetDocumentFile retrieves the stored original of a document
func (s *Service) GetDocumentFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}
	if doc.StoredPath == "" {
		return nil, "", fmt.Errorf("%w: %s has no stored file", ErrDocumentNotFound, id)
	}

	data, err := s.storage.Get(doc.StoredPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting document file: %w", err)
	}
	return data, doc.FileType, nil
}

// ExportDocument serializes a document's parsed data. It returns the
// payload and the download file name.
func (s *Service) ExportDocument(id string, format ExportFormat) ([]byte, string, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}
	if doc.ParsedData == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNothingToExport, id)
	}

	data, err := Export(doc.ParsedData, format)
	if err != nil {
		return nil, "", fmt.Errorf("exporting document: %w", err)
	}
	return data, format.Filename(s.timeSource.Now()), nil
}
