package http

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"landcert/internal/certificate/assets"
	"landcert/internal/certificate/models"
	"landcert/internal/certificate/service"
	"landcert/internal/platform/middleware"
	dErrors "landcert/pkg/domainerrors"
)

const maxUploadSize = 10 << 20

// CacheInvalidator drops a cached verification entry after a mutation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, number string)
}

type CertificateHandler struct {
	svc    *service.Service
	cache  CacheInvalidator
	logger *zap.Logger
}

func NewCertificateHandler(svc *service.Service, cache CacheInvalidator, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{svc: svc, cache: cache, logger: logger}
}

// Register mounts the registrar routes. Callers wrap them with auth.
func (h *CertificateHandler) Register(r chi.Router) {
	r.Post("/", h.issue)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}/status", h.changeStatus)
	r.Get("/{id}/artifact", h.artifactPDF)
	r.Get("/{id}/artifact.png", h.artifactPNG)
}

// certificatePayload is the JSON body (or the "certificate" multipart part)
// for issue and update. Asset files ride alongside as parts named by slot;
// remote sources come through assetUris.
type certificatePayload struct {
	ParcelID string                `json:"parcelId"`
	Owner    models.OwnerIdentity  `json:"ownerIdentity"`
	Land     models.LandDescriptor `json:"landDescriptor"`
	Issuance struct {
		IssuedDate       string           `json:"issuedDate"`
		ExpirationDate   string           `json:"expirationDate"`
		IssuingAuthority models.Bilingual `json:"issuingAuthority"`
	} `json:"issuance"`
	AssetURIs map[string]string `json:"assetUris"`
}

type assetOutcome struct {
	Outcome models.AssetOutcome `json:"outcome"`
	Reason  string              `json:"reason,omitempty"`
}

type issueResponse struct {
	Certificate models.Record                     `json:"certificate"`
	Assets      map[models.AssetSlot]assetOutcome `json:"assets"`
}

func (h *CertificateHandler) issue(w http.ResponseWriter, r *http.Request) {
	payload, sources, err := h.readPayload(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	issued, expiration, err := parseIssuanceDates(payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, resolved, err := h.svc.Issue(r.Context(), service.IssueRequest{
		ParcelID:         payload.ParcelID,
		Owner:            payload.Owner,
		Land:             payload.Land,
		IssuedDate:       issued,
		ExpirationDate:   expiration,
		IssuingAuthority: payload.Issuance.IssuingAuthority,
		Assets:           sources,
		IssuedBy:         middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, issueResponse{
		Certificate: record,
		Assets:      outcomes(resolved),
	})
}

func (h *CertificateHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *CertificateHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	payload, sources, err := h.readPayload(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	issued, expiration, err := parseIssuanceDates(payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.svc.Update(r.Context(), id, service.UpdateRequest{
		Owner:            payload.Owner,
		Land:             payload.Land,
		IssuedDate:       issued,
		ExpirationDate:   expiration,
		IssuingAuthority: payload.Issuance.IssuingAuthority,
		Assets:           sources,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.invalidate(r.Context(), record.CertificateNumber)
	writeJSON(w, http.StatusOK, record)
}

func (h *CertificateHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.invalidate(r.Context(), record.CertificateNumber)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CertificateHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var body struct {
		Status models.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if body.Status == "" {
		writeError(w, h.logger, dErrors.NewValidation("missing fields",
			map[string]string{"status": "is required"}))
		return
	}

	record, err := h.svc.ChangeStatus(r.Context(), id, body.Status, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.invalidate(r.Context(), record.CertificateNumber)
	writeJSON(w, http.StatusOK, record)
}

func (h *CertificateHandler) artifactPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pdf, err := h.svc.Artifact(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="certificate.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *CertificateHandler) artifactPNG(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	img, err := h.svc.ArtifactPNG(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// readPayload accepts either a plain JSON body or a multipart form with a
// "certificate" JSON part plus file parts named after asset slots.
func (h *CertificateHandler) readPayload(r *http.Request) (certificatePayload, map[models.AssetSlot]assets.Source, error) {
	var payload certificatePayload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return payload, nil, dErrors.New(dErrors.CodeValidation, "invalid request body")
		}
		return payload, uriSources(payload.AssetURIs), nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return payload, nil, dErrors.New(dErrors.CodeValidation, "invalid multipart form")
	}

	meta := r.FormValue("certificate")
	if meta == "" {
		return payload, nil, dErrors.NewValidation("missing fields",
			map[string]string{"certificate": "is required"})
	}
	if err := json.Unmarshal([]byte(meta), &payload); err != nil {
		return payload, nil, dErrors.New(dErrors.CodeValidation, "invalid certificate part")
	}

	sources := uriSources(payload.AssetURIs)
	for _, slot := range models.AllSlots() {
		files := r.MultipartForm.File[string(slot)]
		if len(files) == 0 {
			continue
		}
		header := files[0]
		if ext := filepath.Ext(header.Filename); ext != "" && !assets.ValidExtension(ext) {
			return payload, nil, dErrors.NewValidation("unsupported file type",
				map[string]string{string(slot): "extension " + ext + " is not allowed"})
		}
		f, err := header.Open()
		if err != nil {
			return payload, nil, dErrors.Wrap(dErrors.CodeInternal, "open uploaded file", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return payload, nil, dErrors.Wrap(dErrors.CodeInternal, "read uploaded file", err)
		}
		sources[slot] = assets.Source{Inline: data}
	}
	return payload, sources, nil
}

func uriSources(uris map[string]string) map[models.AssetSlot]assets.Source {
	sources := make(map[models.AssetSlot]assets.Source)
	for name, uri := range uris {
		if uri == "" {
			continue
		}
		sources[models.AssetSlot(name)] = assets.Source{URI: uri}
	}
	return sources
}

func parseIssuanceDates(payload certificatePayload) (time.Time, *time.Time, error) {
	issued, err := parseDate(payload.Issuance.IssuedDate)
	if err != nil {
		return time.Time{}, nil, dErrors.NewValidation("invalid date",
			map[string]string{"issuance.issuedDate": "must be YYYY-MM-DD or RFC 3339"})
	}
	if payload.Issuance.ExpirationDate == "" {
		return issued, nil, nil
	}
	expiration, err := parseDate(payload.Issuance.ExpirationDate)
	if err != nil || expiration.IsZero() {
		return time.Time{}, nil, dErrors.NewValidation("invalid date",
			map[string]string{"issuance.expirationDate": "must be YYYY-MM-DD or RFC 3339"})
	}
	return issued, &expiration, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid certificate id")
	}
	return id, nil
}

func outcomes(resolved models.AssetMap) map[models.AssetSlot]assetOutcome {
	out := make(map[models.AssetSlot]assetOutcome, len(resolved))
	for slot, asset := range resolved {
		out[slot] = assetOutcome{Outcome: asset.Outcome, Reason: asset.Reason}
	}
	return out
}

func (h *CertificateHandler) invalidate(ctx context.Context, number string) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, number)
	}
}
