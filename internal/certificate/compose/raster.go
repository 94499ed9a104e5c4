package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"landcert/internal/certificate/models"
)

// pxPerMM is the raster export scale; 4 px/mm puts a landscape A4 page at
// 1188x840.
const pxPerMM = 4.0

// ComposePNG renders the same fixed layout as Compose into a flattened
// raster image. It consumes the already-resolved asset map, so no asset
// resolution is re-run for the second export format.
func (c *Composer) ComposePNG(record models.Record, resolved models.AssetMap, opticalCode []byte, emblem []byte) ([]byte, error) {
	dc := gg.NewContext(int(pageW*pxPerMM), int(pageH*pxPerMM))
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	sec := buildSections(record)

	// Header.
	drawImageMM(dc, emblem, margin, margin, 22, 22)
	dc.SetRGB(0, 0, 0)
	drawCenteredMM(dc, sec.title, pageW/2, margin+6)
	drawCenteredMM(dc, sec.titleLocal, pageW/2, margin+12)
	drawCenteredMM(dc, sec.certNumber, pageW/2, margin+18)
	drawCenteredMM(dc, sec.regNumber, pageW/2, margin+23)
	lineMM(dc, margin, 44, pageW-margin, 44)

	// Left column.
	drawImageMM(dc, resolved[models.SlotOwnerPhoto].Data, margin+8, bodyTop, 42, 52)
	drawImageMM(dc, opticalCode, margin+8, bodyTop+58, 42, 42)
	drawCenteredMM(dc, "Scan to verify authenticity", margin+leftW/2, bodyTop+104)

	// Right column.
	y := bodyTop + 4
	y = drawFieldsMM(dc, "OWNER", sec.owner, y)
	y = drawFieldsMM(dc, "LAND", sec.land, y+4)
	drawStringMM(dc, "RIGHTS AND CONDITIONS", rightX, y+4)
	y += 9
	for _, paragraph := range sec.legal {
		y = drawWrappedMM(dc, paragraph, rightX, y, pageW-margin-rightX)
	}
	drawFieldsMM(dc, "VALIDITY", sec.validity, y+4)

	// Signature row.
	drawSignatureMM(dc, resolved[models.SlotOwnerSignature], margin+18, 168, "Owner")
	drawSignatureMM(dc, resolved[models.SlotOfficerSignature], pageW/2+18, 168, "Authorizing Officer")

	// Footer.
	lineMM(dc, margin, 193, pageW-margin, 193)
	drawImageMM(dc, emblem, margin, 195, 10, 10)
	drawStringMM(dc, sec.authority.Primary, margin+12, 199)
	drawStringMM(dc, sec.authority.Local, margin+12, 204)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode raster artifact: %w", err)
	}
	return buf.Bytes(), nil
}

func drawImageMM(dc *gg.Context, data []byte, x, y, w, h float64) {
	if len(data) == 0 {
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	dc.Push()
	dc.Translate(x*pxPerMM, y*pxPerMM)
	dc.Scale(w*pxPerMM/float64(bounds.Dx()), h*pxPerMM/float64(bounds.Dy()))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func drawStringMM(dc *gg.Context, s string, x, y float64) {
	dc.SetRGB(0, 0, 0)
	dc.DrawString(s, x*pxPerMM, y*pxPerMM)
}

func drawCenteredMM(dc *gg.Context, s string, x, y float64) {
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(s, x*pxPerMM, y*pxPerMM, 0.5, 0)
}

func lineMM(dc *gg.Context, x1, y1, x2, y2 float64) {
	dc.SetRGB(0.47, 0.47, 0.47)
	dc.SetLineWidth(1)
	dc.DrawLine(x1*pxPerMM, y1*pxPerMM, x2*pxPerMM, y2*pxPerMM)
	dc.Stroke()
}

func drawFieldsMM(dc *gg.Context, heading string, fields []field, y float64) float64 {
	drawStringMM(dc, heading, rightX, y)
	y += 5
	for _, f := range fields {
		drawStringMM(dc, f.label, rightX, y)
		drawStringMM(dc, f.value, rightX+34, y)
		y += 4.5
	}
	return y
}

func drawWrappedMM(dc *gg.Context, s string, x, y, w float64) float64 {
	lines := dc.WordWrap(s, w*pxPerMM)
	for _, line := range lines {
		drawStringMM(dc, line, x, y)
		y += 3.8
	}
	return y
}

func drawSignatureMM(dc *gg.Context, sig models.ResolvedAsset, x, y float64, label string) {
	if sig.Outcome == models.OutcomeResolved {
		drawImageMM(dc, sig.Data, x, y, 56, 16)
	} else {
		lineMM(dc, x, y+14, x+56, y+14)
	}
	drawCenteredMM(dc, label, x+28, y+20)
}
