package usecase

import (
	"strings"

	"github.com/unpackeat/backend/internal/domain"
)

// Lengths produced by the EAN-8/UPC-E, UPC-A and EAN-13 readers
var scanCandidateLengths = map[int]bool{8: true, 12: true, 13: true}

// NormalizeBarcode trims whitespace from a barcode entered or scanned by a user.
// The result is used as-is as the lookup key; an empty result is invalid input.
func NormalizeBarcode(raw string) (string, error) {
	barcode := strings.TrimSpace(raw)
	if barcode == "" {
		return "", domain.ErrInvalidInput
	}
	return barcode, nil
}

// IsScanCandidate reports whether a detected code is well formed enough to
// be tallied: digits only, with a length one of the supported symbologies emits.
func IsScanCandidate(code string) bool {
	return scanCandidateLengths[len(code)] && isDigits(code)
}

// isDigits reports whether code is non-empty and made of ASCII digits only
func isDigits(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
