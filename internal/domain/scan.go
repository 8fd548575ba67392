package domain

import "context"

// Detection is a single candidate barcode reported by a detector for one frame
type Detection struct {
	Code string `json:"code"`
}

// ConfirmationEvent is emitted once a candidate has been observed often enough to be trusted
type ConfirmationEvent struct {
	Barcode string `json:"barcode"`
}

// Detector is a barcode detector such as a camera decoder.
// Start begins delivering detections until Stop is called or ctx ends; the
// channel is closed when the detector shuts down.
type Detector interface {
	Start(ctx context.Context) (<-chan Detection, error)
	Stop() error
}
