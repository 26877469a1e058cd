package detection

import (
	"time"
)

// Status is the review state assigned to a detection when it is recorded.
type Status string

const (
	// StatusOK means the plate was read with enough confidence and matches
	// a known plate format.
	StatusOK Status = "OK"

	// StatusLowConfidence means the vision model reported a confidence
	// below the acceptance threshold.
	StatusLowConfidence Status = "LOW_CONFIDENCE"

	// StatusNoPlateFound means the image contained no readable plate.
	StatusNoPlateFound Status = "NO_PLATE_FOUND"

	// StatusManualReview means the text does not match any known plate
	// format and needs an operator to look at it.
	StatusManualReview Status = "MANUAL_REVIEW"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusLowConfidence, StatusNoPlateFound, StatusManualReview:
		return true
	}
	return false
}

// BoundingBox locates a plate inside the source image. Coordinates are
// percentages of the image width and height (0-100).
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Record is a single plate detection.
//
// DetectedAt is the field retention decisions are made on. It is set when the
// detection happens and is never modified afterwards.
type Record struct {
	// ID is assigned by the store on insert and increases monotonically.
	ID int64 `json:"id"`

	// PlateText is the cleaned plate text, or "NO_PLATE".
	PlateText string `json:"plateText"`

	// Confidence is the model confidence rounded to an integer (0-100).
	Confidence int `json:"confidence"`

	BBox BoundingBox `json:"bbox"`

	OriginalImageURL string `json:"originalImageUrl"`
	CroppedImageURL  string `json:"croppedImageUrl,omitempty"`

	Status Status `json:"status"`

	CameraID string `json:"cameraId,omitempty"`

	// UserID is the uploader, 0 when unknown.
	UserID int64 `json:"userId,omitempty"`

	DetectedAt time.Time `json:"detectedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}
