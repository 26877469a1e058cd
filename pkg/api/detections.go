package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
	"github.com/afelipfo/alpr-dashboard/pkg/vision"

	"github.com/julienschmidt/httprouter"
)

// List pagination bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

func (a *API) registerDetections() {
	a.handle(http.MethodPost, "/api/detections", a.postDetections)
	a.handle(http.MethodGet, "/api/detections", a.listDetections)
	a.handle(http.MethodGet, "/api/detections/:id", a.getDetection)
	a.handle(http.MethodDelete, "/api/detections/:id", a.deleteDetection)
}

// IngestRequest is the body of POST /api/detections. Vision holds the raw
// vision model output for one image.
type IngestRequest struct {
	Vision           json.RawMessage `json:"vision"`
	OriginalImageURL string          `json:"originalImageUrl"`
	CroppedImageURLs []string        `json:"croppedImageUrls,omitempty"`
	CameraID         string          `json:"cameraId,omitempty"`
	UserID           int64           `json:"userId,omitempty"`
}

// IngestResponse is returned with 201 Created.
type IngestResponse struct {
	Detections       []*detection.Record `json:"detections"`
	OriginalImageURL string              `json:"originalImageUrl"`
}

// ListResponse is one page of detections.
type ListResponse struct {
	Detections []*detection.Record `json:"detections"`
	Total      int64               `json:"total"`
	HasMore    bool                `json:"hasMore"`
}

func (a *API) postDetections(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req IngestRequest
	if status, err := decodeBody(w, r, a.maxBody, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	if req.OriginalImageURL == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "originalImageUrl is required")
		return
	}
	if len(req.Vision) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "vision is required")
		return
	}

	resp, err := vision.ParseResponse(req.Vision)
	if err != nil {
		var schemaErr *vision.SchemaError
		if errors.As(err, &schemaErr) {
			a.metrics.RecordRejectedPayload()
			details := make([]string, 0, len(schemaErr.Violations))
			for _, v := range schemaErr.Violations {
				details = append(details, v.String())
			}
			writeError(w, http.StatusUnprocessableEntity, codeInvalidVision, "vision response rejected", details...)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	now := a.clock.Now()
	detections := vision.Interpret(resp)
	stored := make([]*detection.Record, 0, len(detections))
	for i, d := range detections {
		record := d.Record()
		record.OriginalImageURL = req.OriginalImageURL
		if i < len(req.CroppedImageURLs) {
			record.CroppedImageURL = req.CroppedImageURLs[i]
		}
		record.CameraID = req.CameraID
		record.UserID = req.UserID
		record.DetectedAt = now
		record.CreatedAt = now

		if _, err := a.records.Store(r.Context(), record); err != nil {
			a.logger.Error("failed to store detection", "error", err)
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not store detection")
			return
		}
		a.metrics.RecordDetection(string(record.Status))
		stored = append(stored, record)
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		Detections:       stored,
		OriginalImageURL: req.OriginalImageURL,
	})
}

func (a *API) listDetections(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query, problems := parseListQuery(r.URL.Query())
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid query parameters", problems...)
		return
	}

	filter := *query
	filter.Limit, filter.Offset = 0, 0

	total, err := a.records.Count(r.Context(), &filter)
	if err != nil {
		a.logger.Error("failed to count detections", "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not list detections")
		return
	}
	records, err := a.records.Query(r.Context(), query)
	if err != nil {
		a.logger.Error("failed to query detections", "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not list detections")
		return
	}
	if records == nil {
		records = []*detection.Record{}
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Detections: records,
		Total:      total,
		HasMore:    int64(query.Offset+query.Limit) < total,
	})
}

// parseListQuery maps query parameters onto a detection.Query and collects
// every invalid parameter.
func parseListQuery(values url.Values) (*detection.Query, []string) {
	q := &detection.Query{Limit: DefaultListLimit}
	var problems []string

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			problems = append(problems, fmt.Sprintf("limit must be an integer between 1 and %d", MaxListLimit))
		} else {
			q.Limit = n
		}
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "offset must be a non-negative integer")
		} else {
			q.Offset = n
		}
	}
	if v := values.Get("minConfidence"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			problems = append(problems, "minConfidence must be an integer between 0 and 100")
		} else {
			q.MinConfidence = &n
		}
	}
	if v := values.Get("status"); v != "" {
		status := detection.Status(strings.ToUpper(v))
		if !status.Valid() {
			problems = append(problems, fmt.Sprintf("status %q is not a known detection status", v))
		} else {
			q.Status = status
		}
	}
	if v := values.Get("startDate"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			problems = append(problems, "startDate: "+err.Error())
		} else {
			q.DetectedFrom = &t
		}
	}
	if v := values.Get("endDate"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			problems = append(problems, "endDate: "+err.Error())
		} else {
			q.DetectedUntil = &t
		}
	}
	if q.DetectedFrom != nil && q.DetectedUntil != nil && q.DetectedFrom.After(*q.DetectedUntil) {
		problems = append(problems, "startDate must not be after endDate")
	}

	q.PlateText = strings.TrimSpace(values.Get("plateText"))
	q.CameraID = values.Get("cameraId")

	return q, problems
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD, got %q", v)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func (a *API) getDetection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := parseID(w, ps)
	if !ok {
		return
	}
	record, err := a.records.Get(r.Context(), id)
	if errors.Is(err, detection.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("detection %d not found", id))
		return
	}
	if err != nil {
		a.logger.Error("failed to get detection", "id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not load detection")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) deleteDetection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := parseID(w, ps)
	if !ok {
		return
	}
	err := a.records.DeleteByID(r.Context(), id)
	if errors.Is(err, detection.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("detection %d not found", id))
		return
	}
	if err != nil {
		a.logger.Error("failed to delete detection", "id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "could not delete detection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
