package shared

import (
	"strings"

	"github.com/google/uuid"
)

// StudentID is the typed join key shared by every ranking collaborator.
// Attendance, progress and quiz records all reference a student through it.
type StudentID string

// ParseStudentID trims and validates a raw identifier.
func ParseStudentID(raw string) (StudentID, error) {
	id := StudentID(strings.TrimSpace(raw))
	if !id.IsValid() {
		return "", ErrInvalidStudentID
	}
	return id, nil
}

// IsValid reports whether the id is non-empty.
func (id StudentID) IsValid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// String returns the raw identifier.
func (id StudentID) String() string {
	return string(id)
}

// NewID returns a fresh random identifier for records and snapshots.
func NewID() string {
	return uuid.NewString()
}
