package vision

import (
	"math"
	"regexp"
	"strings"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
)

// MinConfidence is the lowest confidence accepted without review.
const MinConfidence = 60

// NoPlateText is the plate text recorded when an image has no plate.
const NoPlateText = "NO_PLATE"

var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{3}\d{3}$`),      // ABC123
	regexp.MustCompile(`^[A-Z]{3}\d{4}$`),      // ABC1234
	regexp.MustCompile(`^\d{3}[A-Z]{3}$`),      // 123ABC
	regexp.MustCompile(`^[A-Z]{2}\d{4}$`),      // AB1234
	regexp.MustCompile(`^[A-Z]\d{3}[A-Z]{3}$`), // A123ABC
	regexp.MustCompile(`^[A-Z]{3}\d{2}[A-Z]$`), // ABC12D
}

var (
	invalidPlateChars = regexp.MustCompile(`[^A-Z0-9-]`)
	plateSeparators   = regexp.MustCompile(`[-\s]`)
)

// Detection is an interpreted plate ready to be stored.
type Detection struct {
	PlateText  string
	Confidence int
	BBox       BoundingBox
	Status     detection.Status
}

// CleanText normalizes raw OCR output: upper case, O read as 0, I read as
// 1, and anything outside A-Z, 0-9 and '-' removed.
func CleanText(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.NewReplacer("O", "0", "I", "1").Replace(cleaned)
	return invalidPlateChars.ReplaceAllString(cleaned, "")
}

// ValidPattern reports whether text matches a known plate format once
// separators are removed.
func ValidPattern(text string) bool {
	compact := strings.ToUpper(plateSeparators.ReplaceAllString(text, ""))
	for _, pattern := range platePatterns {
		if pattern.MatchString(compact) {
			return true
		}
	}
	return false
}

// StatusFor assigns the review status for a reading.
func StatusFor(confidence float64, validPattern bool) detection.Status {
	if confidence < MinConfidence {
		return detection.StatusLowConfidence
	}
	if !validPattern {
		return detection.StatusManualReview
	}
	return detection.StatusOK
}

// Interpret turns a validated response into detections. A response without
// plates yields a single NO_PLATE_FOUND placeholder.
func Interpret(resp *Response) []Detection {
	if resp == nil || len(resp.Plates) == 0 {
		return []Detection{{
			PlateText: NoPlateText,
			Status:    detection.StatusNoPlateFound,
		}}
	}

	out := make([]Detection, 0, len(resp.Plates))
	for _, p := range resp.Plates {
		text := CleanText(p.Text)
		out = append(out, Detection{
			PlateText:  text,
			Confidence: int(math.Round(p.Confidence)),
			BBox:       p.BBox,
			Status:     StatusFor(p.Confidence, ValidPattern(text)),
		})
	}
	return out
}

// Record converts a detection into a storable record.
func (d Detection) Record() *detection.Record {
	return &detection.Record{
		PlateText:  d.PlateText,
		Confidence: d.Confidence,
		BBox: detection.BoundingBox{
			XMin: d.BBox.XMin,
			YMin: d.BBox.YMin,
			XMax: d.BBox.XMax,
			YMax: d.BBox.YMax,
		},
		Status: d.Status,
	}
}
