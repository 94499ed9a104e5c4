package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"landcert/internal/verify"
	dErrors "landcert/pkg/domainerrors"
)

// VerifyHandler serves the public verification endpoints. No auth: a scanned
// certificate must be checkable by anyone.
type VerifyHandler struct {
	svc    *verify.Service
	logger *zap.Logger
}

func NewVerifyHandler(svc *verify.Service, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{svc: svc, logger: logger}
}

func (h *VerifyHandler) Register(r chi.Router) {
	r.Get("/verify/{certificateNumber}", h.verify)
	r.Post("/verify/scan", h.verifyScan)
}

func (h *VerifyHandler) verify(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "certificateNumber")
	result := h.svc.Verify(r.Context(), input)
	writeJSON(w, http.StatusOK, result)
}

// verifyScan accepts a multipart "image" part containing a photographed or
// uploaded code and verifies whatever it decodes to.
func (h *VerifyHandler) verifyScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeValidation, "invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, h.logger, dErrors.NewValidation("missing fields",
			map[string]string{"image": "is required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.logger, dErrors.Wrap(dErrors.CodeInternal, "read uploaded image", err))
		return
	}

	result, err := h.svc.VerifyScan(r.Context(), data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
