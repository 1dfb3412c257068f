package query

import (
	"context"
	"log/slog"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TOP STUDENTS QUERY
// Топ-N для главной страницы. Читает из Redis-кеша, если он есть,
// иначе из снапшота в памяти.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTopCount - размер топа по умолчанию.
const DefaultTopCount = 10

// GetTopStudentsQuery - параметры топа.
type GetTopStudentsQuery struct {
	// Count - размер топа. nil означает DefaultTopCount, 0 - пустой топ.
	Count *int
}

// TopCount собирает запрос с явным размером топа.
func TopCount(n int) GetTopStudentsQuery {
	return GetTopStudentsQuery{Count: &n}
}

// Validate проверяет параметры и подставляет значение по умолчанию.
func (q *GetTopStudentsQuery) Validate() error {
	n := DefaultTopCount
	if q.Count != nil {
		n = *q.Count
	}
	if n < 0 {
		return invalidQuery("count cannot be negative")
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	q.Count = &n
	return nil
}

// GetTopStudentsResult - топ студентов.
type GetTopStudentsResult struct {
	Entries []RankingEntryDTO `json:"entries"`
	Total   int               `json:"total"`

	// Source - "cache" или "memory".
	Source string `json:"source"`
}

// GetTopStudentsHandler обрабатывает запрос топа.
type GetTopStudentsHandler struct {
	reader SnapshotReader
	cache  ranking.SnapshotCache
	logger *slog.Logger
}

// NewGetTopStudentsHandler создаёт обработчик. cache может быть nil.
func NewGetTopStudentsHandler(reader SnapshotReader, cache ranking.SnapshotCache, log *slog.Logger) *GetTopStudentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GetTopStudentsHandler{reader: reader, cache: cache, logger: log.With(logger.Component("top_students"))}
}

// Handle возвращает топ. Ошибка кеша не ломает запрос.
// Кеш используется, только если в нём лежит текущий снапшот.
func (h *GetTopStudentsHandler) Handle(ctx context.Context, q GetTopStudentsQuery) (*GetTopStudentsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	snap := h.reader.Snapshot()

	if h.cache != nil && *q.Count > 0 {
		if entries, ok := h.fromCache(ctx, snap, *q.Count); ok {
			return &GetTopStudentsResult{Entries: NewRankingEntryDTOs(entries), Total: snap.Count(), Source: "cache"}, nil
		}
	}

	return &GetTopStudentsResult{
		Entries: NewRankingEntryDTOs(snap.Top(*q.Count)),
		Total:   snap.Count(),
		Source:  "memory",
	}, nil
}

func (h *GetTopStudentsHandler) fromCache(ctx context.Context, snap *ranking.Snapshot, n int) ([]*ranking.Entry, bool) {
	id, err := h.cache.SnapshotID(ctx)
	if err != nil {
		h.logger.Warn("ranking cache read failed, serving from memory", logger.Err(err))
		return nil, false
	}
	if id != snap.ID {
		h.logger.Debug("ranking cache is stale, serving from memory",
			slog.String("cached_snapshot_id", id), logger.SnapshotID(snap.ID))
		return nil, false
	}

	entries, err := h.cache.Top(ctx, n)
	if err != nil {
		h.logger.Warn("ranking cache read failed, serving from memory", logger.Err(err))
		return nil, false
	}
	return entries, true
}
