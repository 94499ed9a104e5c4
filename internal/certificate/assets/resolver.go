// Package assets fetches, validates, and normalizes every image embedded in a
// certificate. Resolution never fails past the package boundary: any unusable
// source degrades to the kind's default placeholder with an outcome tag.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"landcert/internal/certificate/models"
)

// Kind selects the validation and fallback policy for a slot.
type Kind string

const (
	KindProfilePhoto Kind = "profile-photo"
	KindSignature    Kind = "signature"
	KindLandPlan     Kind = "land-plan"
	KindEmblem       Kind = "emblem"
)

// allowedMIMEs is the image allow-list for declared and sniffed content
// types. SVG passes validation but cannot be rasterized by normalization, so
// SVG sources degrade to the default during the canonicalization step.
var allowedMIMEs = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/jpg":     true,
	"image/svg+xml": true,
}

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"svg":  true,
}

// Source is one asset input: inline binary bytes, a data-URI string, or a
// remote URL. At most one of Inline/URI is set; an empty Source resolves to
// the kind's default.
type Source struct {
	Inline []byte
	URI    string
}

func (s Source) empty() bool {
	return len(s.Inline) == 0 && s.URI == ""
}

// Result is the outcome of resolving a single source: canonical PNG bytes
// plus the outcome tag and, on degradation, the reason.
type Result struct {
	Data    []byte
	Outcome models.AssetOutcome
	Reason  string
}

// maxFetchBytes bounds a remote asset body the same way maxUploadSize bounds
// uploads at the transport layer.
const maxFetchBytes = 10 << 20

// Resolver resolves asset sources with a bounded per-fetch timeout and body
// size.
type Resolver struct {
	client   *http.Client
	timeout  time.Duration
	maxFetch int64
	logger   *zap.Logger
}

func NewResolver(fetchTimeout time.Duration, logger *zap.Logger) *Resolver {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	return &Resolver{
		client:   &http.Client{Timeout: fetchTimeout},
		timeout:  fetchTimeout,
		maxFetch: maxFetchBytes,
		logger:   logger,
	}
}

// Resolve turns one source into a usable image. It never returns an error:
// every failure path yields the default for the kind with a fallback outcome.
func (r *Resolver) Resolve(ctx context.Context, src Source, kind Kind) Result {
	if src.empty() {
		return r.fallback(kind, "no source supplied")
	}

	raw, reason := r.loadRaw(ctx, src)
	if reason != "" {
		return r.fallback(kind, reason)
	}

	normalized, err := normalizePNG(raw)
	if err != nil {
		return r.fallback(kind, fmt.Sprintf("normalize: %v", err))
	}
	return Result{Data: normalized, Outcome: models.OutcomeResolved}
}

// ResolveAll resolves every certificate slot concurrently and joins on all
// six. A slow or failing fetch for one slot cannot block or fail the others
// beyond its own timeout, and the returned map always has an entry per slot.
func (r *Resolver) ResolveAll(ctx context.Context, sources map[models.AssetSlot]Source) models.AssetMap {
	out := make(models.AssetMap, len(models.AllSlots()))
	results := make([]models.ResolvedAsset, len(models.AllSlots()))

	g, ctx := errgroup.WithContext(ctx)
	for i, slot := range models.AllSlots() {
		g.Go(func() error {
			res := r.Resolve(ctx, sources[slot], KindForSlot(slot))
			results[i] = models.ResolvedAsset{
				Slot:    slot,
				Data:    res.Data,
				Outcome: res.Outcome,
				Reason:  res.Reason,
			}
			return nil
		})
	}
	// Resolve never errors, so the group only serves as the join point.
	_ = g.Wait()

	for _, res := range results {
		out[res.Slot] = res
	}
	return out
}

func (r *Resolver) fallback(kind Kind, reason string) Result {
	if r.logger != nil && reason != "no source supplied" {
		r.logger.Debug("asset degraded to default",
			zap.String("kind", string(kind)),
			zap.String("reason", reason),
		)
	}
	return Result{Data: DefaultFor(kind), Outcome: models.OutcomeFallback, Reason: reason}
}

// loadRaw obtains the raw bytes from whichever source form was supplied. A
// non-empty reason means the source was unusable.
func (r *Resolver) loadRaw(ctx context.Context, src Source) ([]byte, string) {
	switch {
	case len(src.Inline) > 0:
		mime := http.DetectContentType(src.Inline)
		if !allowedMIMEs[mime] {
			return nil, fmt.Sprintf("inline content type %q not allowed", mime)
		}
		return src.Inline, ""
	case strings.HasPrefix(src.URI, "data:"):
		return decodeDataURI(src.URI)
	case strings.HasPrefix(src.URI, "http://"), strings.HasPrefix(src.URI, "https://"):
		return r.fetch(ctx, src.URI)
	default:
		return nil, "unrecognized source"
	}
}

// decodeDataURI parses data:<mime>;base64,<payload> and validates the
// declared media type against the allow-list.
func decodeDataURI(uri string) ([]byte, string) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "malformed data URI"
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if !allowedMIMEs[mime] {
		return nil, fmt.Sprintf("data URI media type %q not allowed", mime)
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "data URI is not base64 encoded"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Sprintf("data URI decode: %v", err)
	}
	return data, ""
}

// fetch retrieves a remote asset within the bounded timeout and validates the
// returned content type.
func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Sprintf("build request: %v", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Sprintf("fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Sprintf("fetch: unexpected status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if mime, _, found := strings.Cut(contentType, ";"); found {
		contentType = mime
	}
	contentType = strings.TrimSpace(contentType)
	if !allowedMIMEs[contentType] {
		return nil, fmt.Sprintf("remote content type %q not allowed", contentType)
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, r.maxFetch+1))
	if err != nil {
		return nil, fmt.Sprintf("read body: %v", err)
	}
	if n > r.maxFetch {
		return nil, fmt.Sprintf("remote asset exceeds %d bytes", r.maxFetch)
	}
	return buf.Bytes(), ""
}

// normalizePNG converts validated bytes into the canonical embeddable
// representation used by the document composer. Formats the standard decoders
// cannot rasterize (notably SVG) fail here and degrade to the default.
func normalizePNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidExtension reports whether a declared file extension is on the image
// allow-list. Used by the transport layer to reject uploads early.
func ValidExtension(ext string) bool {
	return allowedExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
}
