package portal

import (
	"encoding/json"
	"fmt"

	"gradewatch/internal/snapshot"
)

// ClosedResponseCode is the responseCode the portal returns while registration is not open.
const ClosedResponseCode = -1

type RegistrationStatus struct {
	// ResponseCode is nil when the payload did not carry the field.
	ResponseCode *int
}

// Open mirrors how the portal signals registration: anything but the closed sentinel,
// including a missing responseCode, means registration is open.
func (s RegistrationStatus) Open() bool {
	return s.ResponseCode == nil || *s.ResponseCode != ClosedResponseCode
}

type CourseGrade struct {
	Course string
	// Grade is nil while the course has not been graded.
	Grade *string
}

func decodeRegistration(body []byte) (RegistrationStatus, error) {
	var payload struct {
		ResponseCode *int `json:"responseCode"`
	}
	err := json.Unmarshal(body, &payload)
	if err != nil {
		return RegistrationStatus{}, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	return RegistrationStatus{ResponseCode: payload.ResponseCode}, nil
}

type gradeEntry struct {
	Course *struct {
		Name *string `json:"name"`
	} `json:"course"`
	Grade json.RawMessage `json:"grade"`
}

func decodeGrades(body []byte) ([]CourseGrade, error) {
	var entries []gradeEntry
	err := json.Unmarshal(body, &entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	grades := make([]CourseGrade, 0, len(entries))
	for i, entry := range entries {
		if entry.Course == nil || entry.Course.Name == nil {
			return nil, fmt.Errorf("%w: entry %d has no course name", ErrUnexpectedResponse, i)
		}
		grade, err := snapshot.DecodeGrade(entry.Grade)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrUnexpectedResponse, i, err)
		}
		grades = append(grades, CourseGrade{
			Course: *entry.Course.Name,
			Grade:  grade,
		})
	}
	return grades, nil
}
