// Package progress содержит доменную модель трекера учебного прогресса:
// учебные планы студента и задачи в них.
package progress

import (
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Task - задача учебного плана.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Plan - учебный план студента.
type Plan struct {
	// ID - идентификатор плана.
	ID string

	// StudentID - владелец плана.
	StudentID shared.StudentID

	// Title - название плана.
	Title string

	// Tasks - задачи плана в порядке отображения.
	Tasks []Task

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time
}

// NewPlan создаёт план. Задачам без ID присваиваются новые идентификаторы.
func NewPlan(id string, studentID shared.StudentID, title string, tasks []Task) (*Plan, error) {
	if strings.TrimSpace(id) == "" {
		id = shared.NewID()
	}
	p := &Plan{
		ID:        id,
		StudentID: studentID,
		Title:     strings.TrimSpace(title),
		Tasks:     make([]Task, 0, len(tasks)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, t := range tasks {
		if strings.TrimSpace(t.ID) == "" {
			t.ID = shared.NewID()
		}
		p.Tasks = append(p.Tasks, t)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate проверяет инварианты плана.
func (p *Plan) Validate() error {
	if !p.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if p.Title == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "plan title cannot be empty")
	}
	return nil
}

// Counts возвращает общее и выполненное количество задач.
func (p *Plan) Counts() (total, completed int) {
	for _, t := range p.Tasks {
		total++
		if t.Completed {
			completed++
		}
	}
	return total, completed
}

// ToggleTask переключает флаг выполнения задачи и возвращает новое значение.
func (p *Plan) ToggleTask(taskID string) (bool, error) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			p.Tasks[i].Completed = !p.Tasks[i].Completed
			p.UpdatedAt = time.Now().UTC()
			return p.Tasks[i].Completed, nil
		}
	}
	return false, shared.ErrTaskNotFound
}

// Clone создаёт копию плана вместе со списком задач.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Tasks = append([]Task(nil), p.Tasks...)
	return &c
}

// TaskCounts суммирует задачи по всем планам.
func TaskCounts(plans []*Plan) (total, completed int) {
	for _, p := range plans {
		t, c := p.Counts()
		total += t
		completed += c
	}
	return total, completed
}
