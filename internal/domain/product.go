package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ProductRecord is a product payload keyed by barcode. The payload is kept as
// raw JSON: the resolution chain only passes it through and persists it.
type ProductRecord struct {
	Barcode   string          `json:"barcode"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// Source identifies which stage of the resolution chain produced a record
type Source string

const (
	SourceInternalStore Source = "internal-store"
	SourceRemoteService Source = "remote-service"
	SourceFallbackStore Source = "fallback-store"
)

// ResolutionResult is the outcome of resolving a barcode.
// PersistErr is a soft error: the upsert after a remote hit failed but the
// record was still found.
type ResolutionResult struct {
	Found      bool
	Record     *ProductRecord
	Source     Source
	PersistErr error
}

// ResolutionFailedError is returned when no source produced a record.
// Attempted and Causes are meant for logs, never for end users.
type ResolutionFailedError struct {
	Barcode   string
	Attempted []Source
	Causes    []error
}

func (e *ResolutionFailedError) Error() string {
	names := make([]string, 0, len(e.Attempted))
	for _, s := range e.Attempted {
		names = append(names, string(s))
	}
	return "product " + e.Barcode + " not found in " + strings.Join(names, ", ")
}

// NotFoundMessage is the user-facing text for a barcode no source could resolve
func NotFoundMessage(barcode string) string {
	return "Product (" + barcode + ") not found. Please try another barcode."
}

// Is makes errors.Is(err, ErrResolutionFailed) match
func (e *ResolutionFailedError) Is(target error) bool {
	return target == ErrResolutionFailed
}

// IsJSONObject reports whether payload is a JSON object. Remote and fallback
// payloads that are not objects are treated as malformed.
func IsJSONObject(payload []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return false
	}
	return obj != nil
}
