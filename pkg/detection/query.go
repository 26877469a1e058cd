package detection

import "time"

// Query filters detection records. Zero-valued fields are ignored, so an
// empty Query matches every record.
type Query struct {
	// DetectedFrom matches records with DetectedAt >= DetectedFrom.
	DetectedFrom *time.Time

	// DetectedUntil matches records with DetectedAt <= DetectedUntil.
	DetectedUntil *time.Time

	// DetectedBefore matches records with DetectedAt strictly before the
	// given instant. Retention uses this bound.
	DetectedBefore *time.Time

	// PlateText matches records whose plate text contains the value.
	PlateText string

	Status   Status
	CameraID string

	// MinConfidence matches records with Confidence >= MinConfidence.
	MinConfidence *int

	// Limit caps the number of records returned by Query. 0 means the
	// backend default.
	Limit  int
	Offset int
}

// Matches reports whether r satisfies every filter in q. Pagination fields
// are not considered.
func (q *Query) Matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.DetectedFrom != nil && r.DetectedAt.Before(*q.DetectedFrom) {
		return false
	}
	if q.DetectedUntil != nil && r.DetectedAt.After(*q.DetectedUntil) {
		return false
	}
	if q.DetectedBefore != nil && !r.DetectedAt.Before(*q.DetectedBefore) {
		return false
	}
	if q.PlateText != "" && !containsFold(r.PlateText, q.PlateText) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.CameraID != "" && r.CameraID != q.CameraID {
		return false
	}
	if q.MinConfidence != nil && r.Confidence < *q.MinConfidence {
		return false
	}
	return true
}
