package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	dErrors "landcert/pkg/domainerrors"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps a domain error onto its HTTP status. Anything without a
// code is treated as internal and its detail withheld from the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		log.Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   string(dErrors.CodeInternal),
			Message: "internal server error",
		})
		return
	}

	status := dErrors.ToHTTPStatus(de.Code)
	if status == http.StatusInternalServerError {
		log.Error("internal error", zap.Error(err))
		de = dErrors.New(dErrors.CodeInternal, "internal server error")
	}
	writeJSON(w, status, errorResponse{
		Error:   string(de.Code),
		Message: de.Message,
		Fields:  de.Fields,
	})
}
