package dto

import (
	"encoding/json"
	"reflect"
)

// PresentString is a JSON string that remembers whether its key was sent.
// An explicit null counts as present with an empty value.
type PresentString struct {
	Value   string
	Present bool
}

// Present builds a PresentString for value.
func Present(value string) PresentString {
	return PresentString{Value: value, Present: true}
}

// UnmarshalJSON marks the field present and accepts a string or null.
func (p *PresentString) UnmarshalJSON(data []byte) error {
	p.Present = true
	if string(data) == "null" {
		p.Value = ""
		return nil
	}
	return json.Unmarshal(data, &p.Value)
}

// MarshalJSON renders absent fields as null.
func (p PresentString) MarshalJSON() ([]byte, error) {
	if !p.Present {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// PresenceValue lets validator treat PresentString as required-by-presence.
// Register it with RegisterCustomTypeFunc for PresentString{}.
func PresenceValue(field reflect.Value) interface{} {
	if p, ok := field.Interface().(PresentString); ok {
		return p.Present
	}
	return nil
}

// AttendanceRowInput is one attendance row in an inline evaluation request.
type AttendanceRowInput struct {
	StudentID      string        `json:"student_id" validate:"required"`
	AttendanceDate string        `json:"attendance_date" validate:"required"`
	Status         PresentString `json:"status" validate:"required"`
}

// StudentInput is one roster row in an inline evaluation request.
type StudentInput struct {
	StudentID   string        `json:"student_id" validate:"required"`
	StudentName PresentString `json:"student_name" validate:"required"`
	ParentEmail PresentString `json:"parent_email" validate:"required"`
}

// EvaluateAlertsRequest captures POST /absence-alerts/evaluate payload.
type EvaluateAlertsRequest struct {
	Attendance    []AttendanceRowInput `json:"attendance" validate:"dive"`
	Students      []StudentInput       `json:"students" validate:"dive"`
	MinAbsentDays *int                 `json:"min_absent_days,omitempty" validate:"omitempty,min=1"`
}

// AlertQuery scopes GET /absence-alerts against the attendance store.
type AlertQuery struct {
	ClassID   string `form:"classId"`
	StudentID string `form:"studentId"`
	From      string `form:"from"`
	To        string `form:"to"`
}
