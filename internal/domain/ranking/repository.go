package ranking

import (
	"context"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository хранит историю пересчётов.
// Реализации находятся в infrastructure слое (memory, PostgreSQL).
type SnapshotRepository interface {
	// Save сохраняет снапшот целиком.
	Save(ctx context.Context, s *Snapshot) error

	// Latest возвращает последний сохранённый снапшот или shared.ErrSnapshotNotFound.
	Latest(ctx context.Context) (*Snapshot, error)

	// History возвращает историю позиций студента, новые записи первыми.
	History(ctx context.Context, id shared.StudentID, limit int) ([]HistoryPoint, error)

	// Prune удаляет снапшоты старше указанного времени, оставляя не меньше keep последних.
	// Возвращает количество удалённых снапшотов.
	Prune(ctx context.Context, olderThan time.Time, keep int) (int, error)
}

// HistoryPoint - позиция студента в одном из прошлых снапшотов.
type HistoryPoint struct {
	SnapshotID   string     `json:"snapshot_id"`
	CalculatedAt time.Time  `json:"calculated_at"`
	Rank         Rank       `json:"rank"`
	TotalScore   float64    `json:"total_score"`
	RankChange   RankChange `json:"rank_change"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache - быстрый read-model рейтинга для других экземпляров сервиса.
type SnapshotCache interface {
	// Publish заменяет содержимое кеша снапшотом.
	Publish(ctx context.Context, s *Snapshot) error

	// Top возвращает первые n записей из кеша.
	Top(ctx context.Context, n int) ([]*Entry, error)

	// Get возвращает запись студента или shared.ErrStudentNotRanked.
	Get(ctx context.Context, id shared.StudentID) (*Entry, error)

	// SnapshotID возвращает ID опубликованного снапшота.
	// Пустая строка без ошибки - кеш пуст.
	SnapshotID(ctx context.Context) (string, error)

	// Invalidate очищает кеш. Используется, когда публикация не удалась
	// и в кеше остался устаревший рейтинг.
	Invalidate(ctx context.Context) error
}
