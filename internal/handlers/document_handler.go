package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/arbor"
)

const (
	documentsPathPrefix = "/api/documents/"
	// Room for multipart framing on top of the file itself
	multipartOverhead = 1 << 20
)

type DocumentHandler struct {
	documentService interfaces.DocumentService
	maxFileSize     int64
	logger          arbor.ILogger
}

func NewDocumentHandler(documentService interfaces.DocumentService, maxFileSize int64, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     maxFileSize,
		logger:          logger,
	}
}

// UploadHandler accepts a multipart upload in field "file" with an optional "type"
func (h *DocumentHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteServiceError(w, h.logger, fmt.Errorf("%w: upload exceeds %d bytes", common.ErrSizeLimitExceeded, h.maxFileSize), "Upload rejected")
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Form field 'file' is required")
		return
	}
	defer file.Close()

	// One byte past the ceiling is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read upload")
		WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.documentService.SubmitDocument(r.Context(), data, header.Filename, r.FormValue("type"))
	if err != nil {
		WriteServiceError(w, h.logger, err, "Upload rejected")
		return
	}

	WriteJSON(w, http.StatusAccepted, result)
}

// ListHandler returns a paginated list of documents, newest first
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	docs, err := h.documentService.ListDocuments(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to list documents")
		return
	}

	page, pageSize := GetPaginationParams(r)
	items, pagination := Paginate(docs, page, pageSize)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents":  items,
		"pagination": pagination,
	})
}

// GetHandler returns a single document with status and chunk ids
func (h *DocumentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r, documentsPathPrefix, "")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to get document")
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// DeleteHandler removes a document with its chunks and vectors
func (h *DocumentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r, documentsPathPrefix, "")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	if err := h.documentService.DeleteDocument(r.Context(), id); err != nil {
		WriteServiceError(w, h.logger, err, "Failed to delete document")
		return
	}
	WriteSuccess(w, "Document deleted")
}

// StatsHandler returns document statistics
func (h *DocumentHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.documentService.Stats(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to get statistics")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
