package refdata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/ledger"
)

// HashDocumentNumberGenerator derives compliance document numbers from the
// invoice identity and issue date: PREFIX-YYYYMMDD-XXXXXXXX, where the suffix
// is the first eight hex digits of SHA-256 over the invoice ID and date. The
// same invoice approved on the same day always yields the same number, so a
// retried approval after a concurrency conflict cannot mint a second number.
type HashDocumentNumberGenerator struct {
	prefix string
}

var _ ledger.DocumentNumberGenerator = (*HashDocumentNumberGenerator)(nil)

// NewHashDocumentNumberGenerator creates a generator with the given number
// prefix ("INV" when empty).
func NewHashDocumentNumberGenerator(prefix string) *HashDocumentNumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "INV"
	}
	return &HashDocumentNumberGenerator{prefix: prefix}
}

// Generate produces the document number for an invoice issued at the given
// time. The date component uses UTC so the number does not depend on the
// server timezone.
func (g *HashDocumentNumberGenerator) Generate(_ context.Context, invoiceID uuid.UUID, issuedAt time.Time) (string, error) {
	if invoiceID == uuid.Nil {
		return "", fmt.Errorf("document number requires an invoice id")
	}
	date := issuedAt.UTC().Format("20060102")

	h := sha256.New()
	h.Write(invoiceID[:])
	h.Write([]byte(date))
	suffix := strings.ToUpper(hex.EncodeToString(h.Sum(nil)[:4]))

	return fmt.Sprintf("%s-%s-%s", g.prefix, date, suffix), nil
}
