package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is a validated vision model payload.
type Response struct {
	Plates []Plate `json:"plates"`
}

// Plate is one plate reported by the model, before interpretation.
type Plate struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// BoundingBox is expressed in percent of the image dimensions.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Violation is one schema rule broken by a payload.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// SchemaError lists every violation found in a payload.
type SchemaError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "vision response rejected"
	case 1:
		return "vision response rejected: " + e.Violations[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "vision response rejected with %d violations:", len(e.Violations))
	for _, v := range e.Violations {
		sb.WriteString("\n  - ")
		sb.WriteString(v.String())
	}
	return sb.String()
}

// Wire shapes use pointers so that missing fields can be told apart from
// zero values.
type wireResponse struct {
	Plates *[]wirePlate `json:"plates"`
}

type wirePlate struct {
	Text       *string   `json:"text"`
	Confidence *float64  `json:"confidence"`
	BBox       *wireBBox `json:"bbox"`
}

type wireBBox struct {
	XMin *float64 `json:"x_min"`
	YMin *float64 `json:"y_min"`
	XMax *float64 `json:"x_max"`
	YMax *float64 `json:"y_max"`
}

// ParseResponse decodes and validates a vision payload of the form
//
//	{"plates":[{"text":"ABC123","confidence":92.5,
//	            "bbox":{"x_min":10,"y_min":40,"x_max":30,"y_max":50}}]}
//
// Unknown fields, missing fields and out of range values are rejected with
// a *SchemaError.
func ParseResponse(data []byte) (*Response, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var wire wireResponse
	if err := dec.Decode(&wire); err != nil {
		return nil, &SchemaError{Violations: []Violation{{Message: "malformed JSON: " + err.Error()}}}
	}
	if dec.More() {
		return nil, &SchemaError{Violations: []Violation{{Message: "unexpected data after JSON object"}}}
	}

	return wire.validate()
}

func (w *wireResponse) validate() (*Response, error) {
	if w.Plates == nil {
		return nil, &SchemaError{Violations: []Violation{{Path: "plates", Message: "is required"}}}
	}

	var violations []Violation
	resp := &Response{Plates: make([]Plate, 0, len(*w.Plates))}

	for i, wp := range *w.Plates {
		path := fmt.Sprintf("plates[%d]", i)
		var p Plate

		if wp.Text == nil {
			violations = append(violations, Violation{Path: path + ".text", Message: "is required"})
		} else {
			p.Text = *wp.Text
		}

		switch {
		case wp.Confidence == nil:
			violations = append(violations, Violation{Path: path + ".confidence", Message: "is required"})
		case !inPercentRange(*wp.Confidence):
			violations = append(violations, Violation{
				Path:    path + ".confidence",
				Message: fmt.Sprintf("must be between 0 and 100, got %g", *wp.Confidence),
			})
		default:
			p.Confidence = *wp.Confidence
		}

		if wp.BBox == nil {
			violations = append(violations, Violation{Path: path + ".bbox", Message: "is required"})
		} else {
			bbox, bad := wp.BBox.validate(path + ".bbox")
			violations = append(violations, bad...)
			p.BBox = bbox
		}

		resp.Plates = append(resp.Plates, p)
	}

	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}
	return resp, nil
}

func (w *wireBBox) validate(path string) (BoundingBox, []Violation) {
	var (
		bbox       BoundingBox
		violations []Violation
	)

	coords := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"x_min", w.XMin, &bbox.XMin},
		{"y_min", w.YMin, &bbox.YMin},
		{"x_max", w.XMax, &bbox.XMax},
		{"y_max", w.YMax, &bbox.YMax},
	}
	complete := true
	for _, c := range coords {
		switch {
		case c.src == nil:
			complete = false
			violations = append(violations, Violation{Path: path + "." + c.name, Message: "is required"})
		case !inPercentRange(*c.src):
			complete = false
			violations = append(violations, Violation{
				Path:    path + "." + c.name,
				Message: fmt.Sprintf("must be between 0 and 100, got %g", *c.src),
			})
		default:
			*c.dst = *c.src
		}
	}

	if complete {
		if bbox.XMin > bbox.XMax {
			violations = append(violations, Violation{Path: path, Message: "x_min must not exceed x_max"})
		}
		if bbox.YMin > bbox.YMax {
			violations = append(violations, Violation{Path: path, Message: "y_min must not exceed y_max"})
		}
	}
	return bbox, violations
}

func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}
