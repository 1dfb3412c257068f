// Package student содержит справочник студентов класса.
//
// Справочник - один из четырёх источников данных для рейтинга. Пакет
// определяет:
//
//   - Сущность Student: имя, фото, роль, интересы и достижения
//   - Интерфейс Repository (реализации: memory и postgres)
//
// # Достижения
//
// Для рейтинга важно только количество уникальных достижений:
//
//	s, err := NewStudent("s-1", "Айгерим", "/photos/s-1.jpg")
//	if err != nil {
//	    return err
//	}
//	s.AddAchievement("first-quiz")   // true
//	s.AddAchievement("first-quiz")   // false, уже есть
//	s.AchievementCount()             // 1
//
// # Порядок справочника
//
// List возвращает студентов по времени добавления, затем по ID
// (см. SortForDirectory). Рейтинг от этого порядка не зависит.
package student
