// Package student содержит доменную модель справочника студентов класса.
// Справочник - источник идентичности для рейтинга: только студенты,
// присутствующие здесь, получают запись в рейтинге.
package student

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Role - роль участника портала.
type Role string

const (
	// RoleStudent - обычный студент.
	RoleStudent Role = "student"
	// RoleMonitor - староста класса.
	RoleMonitor Role = "monitor"
)

// IsValid проверяет, что роль известна.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleMonitor
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Student - запись справочника студентов.
type Student struct {
	// ID - уникальный идентификатор студента.
	ID shared.StudentID

	// Name - отображаемое имя.
	Name string

	// Photo - ссылка на фотографию (URL или путь).
	Photo string

	// Role - роль в классе.
	Role Role

	// Interests - интересы студента (используются витриной проектов).
	Interests []string

	// Achievements - идентификаторы достижений.
	// Для рейтинга важно только их количество.
	Achievements []string

	// CreatedAt - время добавления в справочник.
	CreatedAt time.Time

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time
}

// NewStudent создаёт студента с валидацией.
func NewStudent(id shared.StudentID, name, photo string) (*Student, error) {
	s := &Student{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Photo:     photo,
		Role:      RoleStudent,
		CreatedAt: time.Now().UTC(),
	}
	s.UpdatedAt = s.CreatedAt

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate проверяет инварианты записи.
func (s *Student) Validate() error {
	if !s.ID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if strings.TrimSpace(s.Name) == "" {
		return shared.ErrInvalidStudentName
	}
	if s.Role != "" && !s.Role.IsValid() {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("unknown role %q", s.Role))
	}
	return nil
}

// SetAchievements заменяет список достижений, удаляя пустые и повторяющиеся.
func (s *Student) SetAchievements(ids []string) {
	s.Achievements = dedupe(ids)
	s.UpdatedAt = time.Now().UTC()
}

// AddAchievement добавляет достижение. Возвращает false, если оно уже есть.
func (s *Student) AddAchievement(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, existing := range s.Achievements {
		if existing == id {
			return false
		}
	}
	s.Achievements = append(s.Achievements, id)
	s.UpdatedAt = time.Now().UTC()
	return true
}

// AchievementCount возвращает количество достижений.
func (s *Student) AchievementCount() int {
	return len(s.Achievements)
}

// Clone создаёт глубокую копию записи.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	c.Interests = append([]string(nil), s.Interests...)
	c.Achievements = append([]string(nil), s.Achievements...)
	return &c
}

// String возвращает строковое представление для логирования.
func (s *Student) String() string {
	return fmt.Sprintf("Student{ID: %s, Name: %s, Achievements: %d}",
		s.ID, s.Name, len(s.Achievements))
}

// SortForDirectory упорядочивает студентов так, как их отдаёт справочник:
// по времени создания, затем по ID.
func SortForDirectory(students []*Student) {
	sort.SliceStable(students, func(i, j int) bool {
		if !students[i].CreatedAt.Equal(students[j].CreatedAt) {
			return students[i].CreatedAt.Before(students[j].CreatedAt)
		}
		return students[i].ID < students[j].ID
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
