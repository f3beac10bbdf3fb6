package statement

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// localScheme prefixes locators of files kept in local storage
const localScheme = "local:"

// maxDocumentBytes bounds every fetched or decoded document
const maxDocumentBytes = 50 << 20

var (
	// ErrFetch is returned when a document cannot be downloaded
	ErrFetch = errors.New("fetching document")
	// ErrDecode is returned when an inline document cannot be decoded
	ErrDecode = errors.New("decoding document")
)

// Fetcher downloads the bytes behind a document locator
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// ObjectReader reads an object from a cloud bucket
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSReader reads objects from Google Cloud Storage with application
// default credentials
type GCSReader struct{}

// ReadObject downloads bucket/object
func (GCSReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// LocatorFetcher resolves http(s)://, gs:// and local: locators
type LocatorFetcher struct {
	client  *http.Client
	storage Storage
	objects ObjectReader
}

// NewLocatorFetcher creates a fetcher. storage serves local: locators.
func NewLocatorFetcher(storage Storage, objects ObjectReader) *LocatorFetcher {
	return &LocatorFetcher{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		storage: storage,
		objects: objects,
	}
}

// Fetch downloads the document behind locator
func (f *LocatorFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := f.fetch(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFetch, locator, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("%w %s: document larger than %d bytes", ErrFetch, locator, maxDocumentBytes)
	}
	return data, nil
}

func (f *LocatorFetcher) fetch(ctx context.Context, locator string) ([]byte, error) {
	if name, ok := strings.CutPrefix(locator, localScheme); ok {
		if f.storage == nil {
			return nil, fmt.Errorf("local storage is not configured")
		}
		return f.storage.Get(name)
	}

	u, err := url.Parse(locator)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https":
		return f.download(ctx, u.String())
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return nil, fmt.Errorf("invalid GCS URI, expected gs://bucket/object")
		}
		if f.objects == nil {
			return nil, fmt.Errorf("cloud storage is not configured")
		}
		return f.objects.ReadObject(ctx, u.Host, object)
	default:
		return nil, fmt.Errorf("unsupported locator scheme %q", u.Scheme)
	}
}

func (f *LocatorFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
}

// DecodeInline decodes a data URI or bare base64 payload. mimeType is the
// media type named by a data URI, empty otherwise.
func DecodeInline(payload string) (data []byte, mimeType string, err error) {
	payload = strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: data URI is not base64 encoded", ErrDecode)
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		payload = body
	}

	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrDecode)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	if len(data) > maxDocumentBytes {
		return nil, "", fmt.Errorf("%w: document larger than %d bytes", ErrDecode, maxDocumentBytes)
	}
	return data, mimeType, nil
}
