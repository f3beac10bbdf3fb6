package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"mime"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedDocument is returned for bytes that are neither a PDF nor an image
var ErrUnsupportedDocument = errors.New("unsupported document")

const mimePDF = "application/pdf"

// passthroughImageTypes are sent to the providers without conversion
var passthroughImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PrepareDocument validates raw statement bytes and normalizes them for the
// providers. PDFs are opened to count pages, HEIC photos and other image
// formats are converted to PNG.
func PrepareDocument(data []byte, declaredType string) (Document, error) {
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty document", ErrUnsupportedDocument)
	}

	mimeType := detectMIMEType(data, declaredType)
	switch {
	case mimeType == mimePDF:
		pages, err := pdfPageCount(data)
		if err != nil {
			return Document{}, err
		}
		return Document{Data: data, MIMEType: mimePDF, Pages: pages}, nil
	case passthroughImageTypes[mimeType] && !isHEICFormat(data):
		return Document{Data: data, MIMEType: mimeType, Pages: 1}, nil
	case strings.HasPrefix(mimeType, "image/"):
		pngData, err := imageToPNG(data, mimeType)
		if err != nil {
			return Document{}, err
		}
		return Document{Data: pngData, MIMEType: "image/png", Pages: 1}, nil
	default:
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}
}

// detectMIMEType prefers what the bytes say over what the caller declared
func detectMIMEType(data []byte, declaredType string) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mimePDF
	}
	if isHEICFormat(data) {
		return "image/heic"
	}
	sniffed := http.DetectContentType(data)
	if sniffed == mimePDF || strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return NormalizeMIMEType(declaredType)
}

// NormalizeMIMEType lowercases a media type and drops its parameters
func NormalizeMIMEType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return contentType
}

// pdfPageCount opens a PDF and reports how many pages it has
func pdfPageCount(pdfData []byte) (int, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return 0, fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: PDF has no pages", ErrUnsupportedDocument)
	}
	return pages, nil
}

// imageToPNG converts any image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Go's image package has no HEIC decoder
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %v", ErrUnsupportedDocument, err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding %s image: %v", ErrUnsupportedDocument, mimeType, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
