package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/akolanti/TutorAPI/internal/adapter"
	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if handlerInstance == nil {
		return false
	}
	if ctx.Err() != nil {
		logRH.FromContext(ctx, config.TRACE_ID_KEY).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func traceOf(r *http.Request) string {
	trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
	return trace
}

// ownerOf is the caller's owner id. Empty means anonymous, which only sees shared material.
func ownerOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(config.OwnerHeader))
}

// anonymous uploads have no private owner, so they are always shared
func parseVisibility(raw string, ownerId string) (commonModels.Visibility, bool) {
	if ownerId == "" {
		return commonModels.VisibilityShared, raw == "" || raw == string(commonModels.VisibilityShared)
	}
	switch commonModels.Visibility(raw) {
	case "", commonModels.VisibilityPrivate:
		return commonModels.VisibilityPrivate, true
	case commonModels.VisibilityShared:
		return commonModels.VisibilityShared, true
	}
	return "", false
}

func closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		logRH.Error("Couldn't close the request body", "error", err)
	}
}
