// Package compose lays out a finalized certificate record plus its resolved
// assets into the fixed-section printable artifact. Composition is a pure
// function of its inputs: identical record, assets, and optical code always
// produce byte-identical output. No wall-clock value may enter the artifact
// body.
package compose

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"landcert/internal/certificate/models"
)

// Page geometry in millimeters, landscape A4.
const (
	pageW   = 297.0
	pageH   = 210.0
	margin  = 12.0
	leftW   = 60.0
	rightX  = 82.0
	bodyTop = 47.0
)

// Artifact is the rendered print-ready certificate document.
type Artifact struct {
	PDF []byte
}

// Options configures the composer. UnicodeFontPath points at a TTF covering
// the local script; when empty, local-language text is rendered through the
// built-in codepage translator and glyphs outside it are dropped.
type Options struct {
	UnicodeFontPath string
}

type Composer struct {
	opts Options
}

func New(opts Options) *Composer {
	return &Composer{opts: opts}
}

// Compose renders the certificate PDF. The emblem slot is drawn from the
// resolved asset map along with the other five slots; every slot is expected
// to be present, resolved or fallen back, before composition runs.
func (c *Composer) Compose(record models.Record, resolved models.AssetMap, opticalCode []byte, emblem []byte) (Artifact, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	// Pinned document dates and a sorted object catalog keep identical inputs
	// byte-identical; fpdf stamps the wall clock into both fields when unset.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetCatalogSort(true)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if c.opts.UnicodeFontPath != "" {
		pdf.AddUTF8Font("certificate", "", c.opts.UnicodeFontPath)
		pdf.AddUTF8Font("certificate", "B", c.opts.UnicodeFontPath)
		family = "certificate"
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	sec := buildSections(record)

	// Only the drawn slots are registered, in a fixed order so the emitted
	// object catalog never varies.
	registerImage(pdf, "emblem", emblem)
	registerImage(pdf, "optical", opticalCode)
	for _, slot := range []models.AssetSlot{
		models.SlotOwnerPhoto, models.SlotOwnerSignature, models.SlotOfficerSignature,
	} {
		registerImage(pdf, string(slot), resolved[slot].Data)
	}

	// Header: emblem, bilingual title, certificate number.
	pdf.ImageOptions("emblem", margin, margin, 22, 22, false, pngOpts(), 0, "")
	pdf.SetFont(family, "B", 18)
	pdf.SetXY(margin, margin+2)
	pdf.CellFormat(pageW-2*margin, 9, tr(sec.title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 13)
	pdf.CellFormat(pageW-2*margin, 7, tr(sec.titleLocal), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(pageW-2*margin, 7, sec.certNumber, "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 8)
	pdf.CellFormat(pageW-2*margin, 5, sec.regNumber, "", 1, "C", false, 0, "")
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(margin, 44, pageW-margin, 44)

	// Left column: owner photo above the scannable code.
	pdf.ImageOptions(string(models.SlotOwnerPhoto), margin+8, bodyTop, 42, 52, false, pngOpts(), 0, "")
	pdf.ImageOptions("optical", margin+8, bodyTop+58, 42, 42, false, pngOpts(), 0, "")
	pdf.SetFont(family, "", 7)
	pdf.SetXY(margin, bodyTop+101)
	pdf.CellFormat(leftW, 4, "Scan to verify authenticity", "", 0, "C", false, 0, "")

	// Right column: owner, land, legal text, validity.
	y := bodyTop
	y = c.fieldBlock(pdf, tr, family, "OWNER", sec.owner, y)
	y = c.fieldBlock(pdf, tr, family, "LAND", sec.land, y+3)
	pdf.SetFont(family, "B", 9)
	pdf.SetXY(rightX, y+3)
	pdf.CellFormat(0, 5, "RIGHTS AND CONDITIONS", "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 7)
	for _, paragraph := range sec.legal {
		pdf.SetX(rightX)
		pdf.MultiCell(pageW-margin-rightX, 3.4, tr(paragraph), "", "L", false)
	}
	y = pdf.GetY()
	c.fieldBlock(pdf, tr, family, "VALIDITY", sec.validity, y+2)

	// Signature row: resolved signature image or a blank signing line.
	sigY := 168.0
	c.signatureSlot(pdf, tr, family, resolved[models.SlotOwnerSignature], margin+18, sigY, "Owner")
	c.signatureSlot(pdf, tr, family, resolved[models.SlotOfficerSignature], pageW/2+18, sigY, "Authorizing Officer")

	// Footer: emblem and jurisdiction boilerplate.
	pdf.Line(margin, 193, pageW-margin, 193)
	pdf.ImageOptions("emblem", margin, 195, 10, 10, false, pngOpts(), 0, "")
	pdf.SetFont(family, "", 7)
	pdf.SetXY(margin+12, 196)
	pdf.CellFormat(0, 4, tr(sec.authority.Primary), "", 1, "L", false, 0, "")
	pdf.SetX(margin + 12)
	pdf.CellFormat(0, 4, tr(sec.authority.Local), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Artifact{}, fmt.Errorf("render artifact: %w", err)
	}
	return Artifact{PDF: buf.Bytes()}, nil
}

func (c *Composer) fieldBlock(pdf *fpdf.Fpdf, tr func(string) string, family, heading string, fields []field, y float64) float64 {
	pdf.SetFont(family, "B", 9)
	pdf.SetXY(rightX, y)
	pdf.CellFormat(0, 5, heading, "", 1, "L", false, 0, "")
	for _, f := range fields {
		pdf.SetX(rightX)
		pdf.SetFont(family, "B", 8)
		pdf.CellFormat(34, 4.4, f.label, "", 0, "L", false, 0, "")
		pdf.SetFont(family, "", 8)
		pdf.CellFormat(0, 4.4, tr(f.value), "", 1, "L", false, 0, "")
	}
	return pdf.GetY()
}

func (c *Composer) signatureSlot(pdf *fpdf.Fpdf, tr func(string) string, family string, sig models.ResolvedAsset, x, y float64, label string) {
	if sig.Outcome == models.OutcomeResolved {
		pdf.ImageOptions(string(sig.Slot), x, y, 56, 16, false, pngOpts(), 0, "")
	} else {
		pdf.Line(x, y+14, x+56, y+14)
	}
	pdf.SetFont(family, "", 8)
	pdf.SetXY(x, y+16)
	pdf.CellFormat(56, 4, tr(label), "", 0, "C", false, 0, "")
}

func registerImage(pdf *fpdf.Fpdf, name string, data []byte) {
	if len(data) == 0 {
		return
	}
	pdf.RegisterImageOptionsReader(name, pngOpts(), bytes.NewReader(data))
}

func pngOpts() fpdf.ImageOptions {
	return fpdf.ImageOptions{ImageType: "PNG"}
}

type field struct {
	label string
	value string
}

// sections is the deterministic textual content of the artifact, shared by
// the PDF and raster renderers so both stay in lockstep.
type sections struct {
	title      string
	titleLocal string
	certNumber string
	regNumber  string
	owner      []field
	land       []field
	legal      []string
	validity   []field
	authority  models.Bilingual
}

func buildSections(record models.Record) sections {
	sizeText := FormatLandSize(record.Land.Size, record.Land.SizeUnit)

	validity := []field{
		{label: "Date of Issue", value: record.Issuance.IssuedDate.Format(time.DateOnly)},
	}
	if record.Issuance.ExpirationDate != nil {
		validity = append(validity, field{label: "Valid Until", value: record.Issuance.ExpirationDate.Format(time.DateOnly)})
	} else {
		validity = append(validity, field{label: "Valid Until", value: "No expiration"})
	}

	return sections{
		title:      "Certificate of Land Holding",
		titleLocal: "የመሬት ይዞታ ማረጋገጫ ምስክር ወረቀት",
		certNumber: "Certificate No. " + record.CertificateNumber,
		regNumber:  "Registration No. " + record.RegistrationNumber,
		owner: []field{
			{label: "Full Name", value: bilingualLine(joinName(record.Owner.FirstName.Primary, record.Owner.LastName.Primary), joinName(record.Owner.FirstName.Local, record.Owner.LastName.Local))},
			{label: "National ID", value: record.Owner.NationalID},
			{label: "Phone", value: record.Owner.Phone},
			{label: "Address", value: bilingualLine(record.Owner.Address.Primary, record.Owner.Address.Local)},
		},
		land: []field{
			{label: "Location", value: bilingualLine(locationLine(record.Land, false), locationLine(record.Land, true))},
			{label: "Parcel", value: record.ParcelID},
			{label: "Area", value: bilingualLine(sizeText.Primary, sizeText.Local)},
			{label: "Land Use", value: record.Land.UseCategory},
			{label: "Description", value: bilingualLine(record.Land.Description.Primary, record.Land.Description.Local)},
		},
		legal: []string{
			record.Legal.RightsStatement.Primary,
			record.Legal.RightsStatement.Local,
			record.Legal.TermsAndConditions.Primary,
			record.Legal.TermsAndConditions.Local,
		},
		validity:  validity,
		authority: record.Issuance.IssuingAuthority,
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func bilingualLine(primary, local string) string {
	if local == "" {
		return primary
	}
	if primary == "" {
		return local
	}
	return primary + " / " + local
}

func locationLine(land models.LandDescriptor, local bool) string {
	pick := func(b models.Bilingual) string {
		if local {
			return b.Local
		}
		return b.Primary
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{pick(land.Region), pick(land.Zone), pick(land.Woreda), pick(land.Kebele), pick(land.Block)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
