package statement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/statement-parser/internal/extraction"
)

// maxFormSize bounds uploads and processing requests
const maxFormSize = int64(maxDocumentBytes)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess runs the extraction pipeline for an uploaded document
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize*2) // base64 inflates inline payloads

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.service.Ingest(r.Context(), req)
	if err != nil {
		s.log.Error().Err(err).Str("file_url", req.FileURL).Str("file_name", req.FileName).Msg("Error processing document")
		switch {
		case errors.Is(err, ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAlreadyProcessing), errors.Is(err, ErrAlreadyProcessed):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to process document")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// contentTypeFor determines an upload's media type from its header or extension
func contentTypeFor(declared, filename string) string {
	if contentType := extraction.NormalizeMIMEType(declared); contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadDocument stores a multipart upload and processes it
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize+1<<20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		s.log.Error().Err(err).Msg("Error parsing multipart form")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.log.Error().Err(err).Msg("Error getting file from form")
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.log.Error().Err(err).Str("filename", header.Filename).Msg("Error reading file data")
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	resp, err := s.service.ProcessUpload(r.Context(), header.Filename, data, contentType)
	if err != nil {
		s.log.Error().Err(err).Str("filename", header.Filename).Msg("Error processing upload")
		switch {
		case errors.Is(err, extraction.ErrUnsupportedDocument) && !errors.Is(err, ErrDecode):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, ErrAlreadyProcessing), errors.Is(err, ErrAlreadyProcessed):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to process document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// handleListDocuments returns all documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ListDocuments()
	if err != nil {
		s.log.Error().Err(err).Msg("Error listing documents")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument returns a single document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.GetDocument(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentFile returns the stored original of a document
func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetDocumentFile(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleExportDocument downloads a document's parsed data as JSON, CSV or XLSX
func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, filename, err := s.service.ExportDocument(r.PathValue("id"), format)
	if err != nil {
		if errors.Is(err, ErrNothingToExport) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// handleDeleteDocument deletes a document
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDocument(r.PathValue("id")); err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeLookupError maps missing documents to 404 and anything else to 500
func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.log.Error().Err(err).Msg("Error handling document request")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
