// Package qr encodes the verification payload into a scannable optical code
// and decodes scanned codes back into a lookup key.
package qr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"

	"landcert/internal/certificate/models"
)

// ErrDecodeFailed marks unreadable or corrupted optical input. Callers
// surface it without crashing and offer re-scan or manual entry.
var ErrDecodeFailed = errors.New("optical code unreadable")

// ImageSize is the square pixel size of generated codes.
const ImageSize = 256

// Payload is the minimal lookup payload embedded in the optical code. Only
// the certificate number drives verification; the remaining fields are
// advisory, for display by scan clients.
type Payload struct {
	CertificateNumber string `json:"certificateNumber"`
	OwnerName         string `json:"ownerName"`
	IssueDate         string `json:"issueDate"`
}

// NewPayload derives the payload from a certificate record.
func NewPayload(record models.Record) Payload {
	return Payload{
		CertificateNumber: record.CertificateNumber,
		OwnerName:         record.Owner.DisplayName(),
		IssueDate:         record.Issuance.IssuedDate.Format(time.DateOnly),
	}
}

// Encode renders the payload as a PNG QR code at a fixed medium
// error-correction level. Identical payloads always produce identical bytes.
func Encode(p Payload) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	img, err := qrcode.Encode(string(content), qrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode optical code: %w", err)
	}
	return img, nil
}

// Decode recovers the raw payload string from a scanned code image.
func Decode(imageBytes []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return result.GetText(), nil
}

// ExtractNumber pulls the certificate number out of decoded payload text.
// Scan entry and manual entry converge on the same lookup key: if the text is
// not a payload document, it is treated as a bare number. No other payload
// field is validated.
func ExtractNumber(text string) string {
	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err == nil && p.CertificateNumber != "" {
		return p.CertificateNumber
	}
	return strings.TrimSpace(text)
}
