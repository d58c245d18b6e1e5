package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/poller"
)

type errorBody struct {
	Error string `json:"error"`
	JobID string `json:"job_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrRecognitionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrSubmissionFailed),
		errors.Is(err, common.ErrRecognitionJobFailed),
		errors.Is(err, common.ErrMalformedResult):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}

	var je *poller.JobError
	if errors.As(err, &je) {
		body.JobID = je.Handle.JobID
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("http.failed", "status", code, "job_id", body.JobID, "err", err)
	}
	writeJson(w, code, body)
}
