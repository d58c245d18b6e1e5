package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/storage"
)

func (h *Handler) handleUploadText(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readDocument(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.pipeline.ExtractText(r.Context(), doc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, res)
}

func (h *Handler) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readDocument(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.pipeline.ExtractForm(r.Context(), doc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, res)
}

func (h *Handler) handleUploadFormEntities(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readDocument(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.pipeline.ExtractFormEntities(r.Context(), doc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, res)
}

// readDocument reads the multipart "file" field into a Document and, when
// an archive is configured, stores it first.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (entity.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return entity.Document{}, common.NewAppError("INVALID_INPUT",
				fmt.Sprintf("upload exceeds %d bytes", h.maxUpload), common.ErrInvalidInput)
		}
		return entity.Document{}, common.NewAppError("INVALID_INPUT", "multipart field \"file\" is required", common.ErrInvalidInput)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return entity.Document{}, common.NewAppError("INVALID_INPUT", "read upload", errors.Join(common.ErrInvalidInput, err))
	}

	name := filepath.Base(header.Filename)
	if !constants.IsAllowedPath(name) {
		return entity.Document{}, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("unsupported file extension %q", filepath.Ext(name)), common.ErrInvalidInput)
	}

	mediaType := constants.DetectMediaType(header.Header.Get("Content-Type"), data)
	doc := entity.NewDocument(name, mediaType, data)

	if h.store != nil {
		loc, err := h.store.Put(r.Context(), storage.DocumentKey(h.prefix, doc), data, mediaType)
		if err != nil {
			return entity.Document{}, fmt.Errorf("archive upload: %w", err)
		}
		doc.Location = &loc
		h.logger.Debug("http.upload.archived", "document_id", doc.ID, "bucket", loc.Bucket, "key", loc.Key)
	}

	h.logger.Info("http.upload.received",
		"document_id", doc.ID,
		"filename", name,
		"media_type", mediaType,
		"bytes", len(data),
	)
	return doc, nil
}
