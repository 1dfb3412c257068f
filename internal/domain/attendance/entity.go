// Package attendance содержит доменную модель журнала посещаемости.
// Одна запись - один студент на одном занятии (дата + метка сессии).
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - отметка посещаемости.
type Status string

const (
	// StatusPresent - присутствовал.
	StatusPresent Status = "present"
	// StatusAbsent - отсутствовал.
	StatusAbsent Status = "absent"
	// StatusLate - опоздал (для рейтинга засчитывается наполовину).
	StatusLate Status = "late"
)

// ParseStatus разбирает строку статуса без учёта регистра.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.ErrInvalidStatus
	}
	return st, nil
}

// IsValid проверяет, что статус известен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - запись журнала посещаемости.
type Entry struct {
	// ID - идентификатор записи.
	ID string

	// StudentID - студент, к которому относится отметка.
	StudentID shared.StudentID

	// Date - день занятия (всегда полночь UTC).
	Date time.Time

	// Session - метка занятия в пределах дня ("math-1", "morning").
	Session string

	// Status - отметка.
	Status Status

	// Note - необязательный комментарий учителя.
	Note string

	// RecordedAt - когда отметка была поставлена.
	RecordedAt time.Time
}

// NewEntry создаёт запись с валидацией и нормализацией даты.
func NewEntry(studentID shared.StudentID, date time.Time, session string, status Status, note string) (*Entry, error) {
	e := &Entry{
		ID:         shared.NewID(),
		StudentID:  studentID,
		Date:       DayOf(date),
		Session:    strings.TrimSpace(session),
		Status:     status,
		Note:       note,
		RecordedAt: time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate проверяет инварианты записи.
func (e *Entry) Validate() error {
	if !e.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if e.Session == "" {
		return shared.ErrInvalidSession
	}
	if !e.Status.IsValid() {
		return shared.ErrInvalidStatus
	}
	return nil
}

// Key возвращает ключ уникальности: один студент - одна отметка на занятие.
func (e *Entry) Key() Key {
	return Key{StudentID: e.StudentID, Date: DayOf(e.Date), Session: e.Session}
}

// Key - составной ключ записи журнала.
type Key struct {
	StudentID shared.StudentID
	Date      time.Time
	Session   string
}

// String возвращает строковое представление ключа.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.StudentID, k.Date.Format("2006-01-02"), k.Session)
}

// DayOf обрезает время до начала дня в UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary - агрегированная посещаемость студента.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`

	// AttendanceRate - доля занятий, на которых студент был (present + late), в процентах.
	// Используется только страницей посещаемости, рейтинг её не читает.
	AttendanceRate float64 `json:"attendance_rate"`
}

// Total возвращает общее количество занятий.
func (s Summary) Total() int {
	return s.Present + s.Absent + s.Late
}

// Summarize считает сводку по списку записей.
func Summarize(entries []*Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		}
	}
	if total := s.Total(); total > 0 {
		s.AttendanceRate = float64(s.Present+s.Late) / float64(total) * 100
	}
	return s
}
