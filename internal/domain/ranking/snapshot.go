package ranking

import (
	"fmt"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - результат одного пересчёта рейтинга.
// Снапшот заменяется целиком и после публикации не изменяется.
type Snapshot struct {
	// ID - идентификатор пересчёта.
	ID string

	// CalculatedAt - время пересчёта.
	CalculatedAt time.Time

	// Entries - записи, отсортированные по рангу.
	Entries []*Entry

	byID map[shared.StudentID]*Entry
}

// NewSnapshot создаёт снапшот из упорядоченных записей.
func NewSnapshot(id string, calculatedAt time.Time, entries []*Entry) *Snapshot {
	if entries == nil {
		entries = make([]*Entry, 0)
	}
	s := &Snapshot{
		ID:           id,
		CalculatedAt: calculatedAt.UTC(),
		Entries:      entries,
	}
	s.RebuildIndex()
	return s
}

// NewEmptySnapshot создаёт пустой снапшот (до первого пересчёта).
func NewEmptySnapshot() *Snapshot {
	return NewSnapshot("", time.Time{}, nil)
}

// RebuildIndex перестраивает индекс по StudentID.
// Используется после чтения из хранилища.
func (s *Snapshot) RebuildIndex() {
	s.byID = make(map[shared.StudentID]*Entry, len(s.Entries))
	for _, e := range s.Entries {
		s.byID[e.StudentID] = e
	}
}

// Get возвращает запись студента или nil.
func (s *Snapshot) Get(id shared.StudentID) *Entry {
	if s == nil || s.byID == nil {
		return nil
	}
	return s.byID[id]
}

// Contains проверяет, есть ли студент в снапшоте.
func (s *Snapshot) Contains(id shared.StudentID) bool {
	return s.Get(id) != nil
}

// Top возвращает первые n записей. При n <= 0 возвращается пустой срез.
func (s *Snapshot) Top(n int) []*Entry {
	if s == nil || n <= 0 {
		return make([]*Entry, 0)
	}
	if n > len(s.Entries) {
		n = len(s.Entries)
	}
	return CloneEntries(s.Entries[:n])
}

// Page возвращает срез записей со смещением offset и не более limit штук.
func (s *Snapshot) Page(offset, limit int) []*Entry {
	if s == nil || limit <= 0 || offset < 0 || offset >= len(s.Entries) {
		return make([]*Entry, 0)
	}
	to := offset + limit
	if to > len(s.Entries) {
		to = len(s.Entries)
	}
	return CloneEntries(s.Entries[offset:to])
}

// Neighbors возвращает соседей студента по рейтингу (±rangeSize), включая его самого.
func (s *Snapshot) Neighbors(id shared.StudentID, rangeSize int) []*Entry {
	e := s.Get(id)
	if e == nil {
		return nil
	}
	idx := int(e.Rank) - 1
	from := idx - rangeSize
	to := idx + rangeSize + 1
	if from < 0 {
		from = 0
	}
	if to > len(s.Entries) {
		to = len(s.Entries)
	}
	return CloneEntries(s.Entries[from:to])
}

// Count возвращает количество записей.
func (s *Snapshot) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// IsEmpty возвращает true, если снапшот пуст.
func (s *Snapshot) IsEmpty() bool {
	return s.Count() == 0
}

// AverageScore возвращает средний итоговый балл.
func (s *Snapshot) AverageScore() float64 {
	if s.IsEmpty() {
		return 0
	}
	var sum float64
	for _, e := range s.Entries {
		sum += e.TotalScore
	}
	return sum / float64(len(s.Entries))
}

// Percentile возвращает долю студентов (в процентах), которые стоят ниже данного.
func (s *Snapshot) Percentile(id shared.StudentID) float64 {
	e := s.Get(id)
	if e == nil || s.Count() == 0 {
		return 0
	}
	below := s.Count() - int(e.Rank)
	return float64(below) / float64(s.Count()) * 100
}

// Clone создаёт независимую копию снапшота.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return NewSnapshot(s.ID, s.CalculatedAt, CloneEntries(s.Entries))
}

// String возвращает строковое представление для логирования.
func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot{ID: %s, Students: %d, Avg: %.2f, At: %s}",
		s.ID, s.Count(), s.AverageScore(), s.CalculatedAt.Format(time.RFC3339))
}

// ══════════════════════════════════════════════════════════════════════════════
// DIFF
// ══════════════════════════════════════════════════════════════════════════════

// MedalChange - смена медали у студента.
type MedalChange struct {
	StudentID shared.StudentID
	Old       Medal
	New       Medal
}

// SnapshotDiff - различия между двумя последовательными снапшотами.
type SnapshotDiff struct {
	// RankChanges - изменения рангов у студентов, присутствующих в обоих снапшотах.
	RankChanges map[shared.StudentID]RankChange

	// NewEntries - студенты, которых не было в старом снапшоте.
	NewEntries []shared.StudentID

	// RemovedEntries - студенты, которые пропали из рейтинга.
	RemovedEntries []shared.StudentID

	// MedalChanges - изменения в тройке лидеров.
	MedalChanges []MedalChange
}

// Diff сравнивает снапшоты и проставляет RankChange в записях нового.
// old может быть nil (первый пересчёт).
//
// Если позиция студента не изменилась, RankChange переносится из old:
// повторный пересчёт без новых данных даёт те же записи.
// В RankChanges всегда лежит фактический сдвиг относительно old.
func Diff(old, next *Snapshot) *SnapshotDiff {
	d := &SnapshotDiff{
		RankChanges:    make(map[shared.StudentID]RankChange),
		NewEntries:     make([]shared.StudentID, 0),
		RemovedEntries: make([]shared.StudentID, 0),
		MedalChanges:   make([]MedalChange, 0),
	}
	if next == nil {
		return d
	}

	for _, e := range next.Entries {
		prev := old.Get(e.StudentID)
		if prev == nil {
			e.RankChange = 0
			d.NewEntries = append(d.NewEntries, e.StudentID)
			if e.Medal != MedalNone {
				d.MedalChanges = append(d.MedalChanges, MedalChange{StudentID: e.StudentID, New: e.Medal})
			}
			continue
		}
		delta := RankChange(int(prev.Rank) - int(e.Rank))
		d.RankChanges[e.StudentID] = delta
		e.RankChange = delta
		if delta == 0 {
			e.RankChange = prev.RankChange
		}
		if prev.Medal != e.Medal {
			d.MedalChanges = append(d.MedalChanges, MedalChange{StudentID: e.StudentID, Old: prev.Medal, New: e.Medal})
		}
	}

	if old != nil {
		for _, e := range old.Entries {
			if !next.Contains(e.StudentID) {
				d.RemovedEntries = append(d.RemovedEntries, e.StudentID)
				if e.Medal != MedalNone {
					d.MedalChanges = append(d.MedalChanges, MedalChange{StudentID: e.StudentID, Old: e.Medal})
				}
			}
		}
	}
	return d
}

// HasChanges возвращает true, если порядок или состав рейтинга изменился.
func (d *SnapshotDiff) HasChanges() bool {
	if len(d.NewEntries) > 0 || len(d.RemovedEntries) > 0 {
		return true
	}
	for _, c := range d.RankChanges {
		if c != 0 {
			return true
		}
	}
	return false
}

// Moved возвращает количество студентов, сменивших позицию.
func (d *SnapshotDiff) Moved() int {
	n := 0
	for _, c := range d.RankChanges {
		if c != 0 {
			n++
		}
	}
	return n
}
