// Package idgen produces certificate and registration numbers in the fixed
// PREFIX-YYYY-NNNNNN format. Uniqueness is enforced by the registry's unique
// constraints, not here; callers pair generation with a bounded
// retry-on-collision loop.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const (
	CertificatePrefix  = "LRMS"
	RegistrationPrefix = "REG"

	// MaxAttempts caps the insert-detect-regenerate loop on number
	// collisions before issuance fails with a generation-exhausted error.
	MaxAttempts = 5
)

var numberPattern = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{6}$`)

// Generator is pure value generation; it holds no state beyond the clock,
// which is injectable for tests.
type Generator struct {
	Now func() time.Time
}

func New() *Generator {
	return &Generator{Now: time.Now}
}

// GenerateCertificateNumber returns a new public certificate number.
func (g *Generator) GenerateCertificateNumber() string {
	return g.generate(CertificatePrefix)
}

// GenerateRegistrationNumber returns a new internal registration number.
func (g *Generator) GenerateRegistrationNumber() string {
	return g.generate(RegistrationPrefix)
}

func (g *Generator) generate(prefix string) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, g.Now().Year(), randomSuffix())
}

// randomSuffix draws a uniform 6-digit value from crypto/rand. The draw
// cannot fail on supported platforms; rand.Int only errors on a broken
// entropy source, in which case panicking early is preferable to issuing
// predictable numbers.
func randomSuffix() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(fmt.Sprintf("idgen: entropy source unavailable: %v", err))
	}
	return n.Int64()
}

// Valid reports whether an externally supplied number conforms to the
// PREFIX-YYYY-NNNNNN format. Non-conforming input must be rejected, never
// silently accepted.
func Valid(number string) bool {
	return numberPattern.MatchString(number)
}
