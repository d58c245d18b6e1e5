package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Textract job ids are at most 64 characters.
const maxBackendJobIDLen = 64

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		// backend job ids are not uuids
		job, err := h.jobs.GetByBackendJobID(r.Context(), raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJson(w, http.StatusOK, job)
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, job)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	handle := entity.JobHandle{
		JobID:      chi.URLParam(r, "jobID"),
		DocumentID: r.URL.Query().Get("document_id"),
	}

	v := common.NewValidator()
	v.Field("job_id", handle.JobID, common.Required, common.MaxLength(maxBackendJobIDLen))
	if handle.DocumentID != "" {
		v.Field("document_id", handle.DocumentID, common.UUID)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		h.writeError(w, err)
		return
	}

	raw := r.URL.Query().Get("variant")
	if raw == "" {
		raw = string(constants.VariantForm)
	}
	variant, ok := constants.ParseVariant(raw)
	if !ok {
		h.writeError(w, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown variant %q", raw), common.ErrInvalidInput))
		return
	}

	var (
		res any
		err error
	)
	switch variant {
	case constants.VariantText:
		res, err = h.pipeline.ResumeText(r.Context(), handle)
	case constants.VariantForm:
		res, err = h.pipeline.ResumeForm(r.Context(), handle)
	default:
		res, err = h.pipeline.ResumeFormEntities(r.Context(), handle)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, res)
}
