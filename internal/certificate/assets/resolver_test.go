package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landcert/internal/certificate/models"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestResolver(timeout time.Duration) *Resolver {
	return NewResolver(timeout, zap.NewNop())
}

func TestResolveEmptySource(t *testing.T) {
	r := newTestResolver(time.Second)

	res := r.Resolve(context.Background(), Source{}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Equal(t, "no source supplied", res.Reason)
	assert.Equal(t, DefaultFor(KindProfilePhoto), res.Data)
}

func TestResolveInlinePNG(t *testing.T) {
	r := newTestResolver(time.Second)

	res := r.Resolve(context.Background(), Source{Inline: testPNG(t)}, KindProfilePhoto)

	require.Equal(t, models.OutcomeResolved, res.Outcome)
	assert.Empty(t, res.Reason)
	_, err := png.Decode(bytes.NewReader(res.Data))
	assert.NoError(t, err, "canonical representation must be PNG")
}

func TestResolveInlineRejectsNonImage(t *testing.T) {
	r := newTestResolver(time.Second)

	res := r.Resolve(context.Background(), Source{Inline: []byte("definitely not an image")}, KindSignature)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Contains(t, res.Reason, "not allowed")
	assert.Equal(t, DefaultFor(KindSignature), res.Data)
}

func TestResolveDataURI(t *testing.T) {
	r := newTestResolver(time.Second)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t))

	res := r.Resolve(context.Background(), Source{URI: uri}, KindLandPlan)

	assert.Equal(t, models.OutcomeResolved, res.Outcome)
}

func TestResolveDataURIFailures(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		reason string
	}{
		{"malformed", "data:image/png;base64", "malformed data URI"},
		{"disallowed media type", "data:application/pdf;base64,AAAA", "not allowed"},
		{"not base64", "data:image/png,rawbytes", "not base64"},
		{"broken base64 payload", "data:image/png;base64,!!!!", "decode"},
	}

	r := newTestResolver(time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), Source{URI: tt.uri}, KindProfilePhoto)
			assert.Equal(t, models.OutcomeFallback, res.Outcome)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

// SVG passes the media-type allow-list but cannot be rasterized, so it
// degrades during normalization.
func TestResolveSVGDegradesAtNormalization(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="10" height="10"/></svg>`)
	uri := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)

	r := newTestResolver(time.Second)
	res := r.Resolve(context.Background(), Source{URI: uri}, KindLandPlan)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Contains(t, res.Reason, "normalize")
	assert.Equal(t, DefaultFor(KindLandPlan), res.Data)
}

func TestResolveRemote(t *testing.T) {
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r := newTestResolver(time.Second)
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeResolved, res.Outcome)
}

func TestResolveRemoteContentTypeWithParams(t *testing.T) {
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write(payload)
	}))
	defer srv.Close()

	r := newTestResolver(time.Second)
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeResolved, res.Outcome)
}

func TestResolveRemoteRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	r := newTestResolver(time.Second)
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Contains(t, res.Reason, "not allowed")
}

func TestResolveRemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(time.Second)
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Contains(t, res.Reason, "404")
}

func TestResolveRemoteOversizedBody(t *testing.T) {
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	r := newTestResolver(time.Second)
	r.maxFetch = int64(len(payload))
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Contains(t, res.Reason, "exceeds")
}

func TestResolveRemoteTimeout(t *testing.T) {
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r := newTestResolver(50 * time.Millisecond)
	res := r.Resolve(context.Background(), Source{URI: srv.URL}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
}

func TestResolveUnrecognizedScheme(t *testing.T) {
	r := newTestResolver(time.Second)

	res := r.Resolve(context.Background(), Source{URI: "ftp://example.com/a.png"}, KindProfilePhoto)

	assert.Equal(t, models.OutcomeFallback, res.Outcome)
	assert.Equal(t, "unrecognized source", res.Reason)
}

func TestResolveAllCoversEverySlot(t *testing.T) {
	r := newTestResolver(time.Second)
	sources := map[models.AssetSlot]Source{
		models.SlotOwnerPhoto: {Inline: testPNG(t)},
	}

	resolved := r.ResolveAll(context.Background(), sources)

	require.Len(t, resolved, len(models.AllSlots()))
	for _, slot := range models.AllSlots() {
		asset, ok := resolved[slot]
		require.True(t, ok, "missing slot %s", slot)
		assert.Equal(t, slot, asset.Slot)
		assert.NotEmpty(t, asset.Data, "every slot must carry embeddable bytes")
	}

	assert.Equal(t, models.OutcomeResolved, resolved[models.SlotOwnerPhoto].Outcome)
	assert.Equal(t, models.OutcomeFallback, resolved[models.SlotOfficerSignature].Outcome)
}

func TestResolveAllWithNilSources(t *testing.T) {
	r := newTestResolver(time.Second)

	resolved := r.ResolveAll(context.Background(), nil)

	require.Len(t, resolved, len(models.AllSlots()))
	for _, asset := range resolved {
		assert.Equal(t, models.OutcomeFallback, asset.Outcome)
	}
}

func TestValidExtension(t *testing.T) {
	assert.True(t, ValidExtension("png"))
	assert.True(t, ValidExtension(".PNG"))
	assert.True(t, ValidExtension(".jpeg"))
	assert.True(t, ValidExtension("svg"))
	assert.False(t, ValidExtension("pdf"))
	assert.False(t, ValidExtension("exe"))
	assert.False(t, ValidExtension(""))
}

func TestDefaultsAreValidPNGs(t *testing.T) {
	for _, kind := range []Kind{KindProfilePhoto, KindSignature, KindLandPlan, KindEmblem} {
		data := DefaultFor(kind)
		require.NotEmpty(t, data, "kind %s", kind)
		_, err := png.Decode(bytes.NewReader(data))
		assert.NoError(t, err, "kind %s", kind)
	}
}
