package query

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// GET RANKINGS QUERY
// Постраничный список рейтинга класса.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultPageSize - размер страницы по умолчанию.
	DefaultPageSize = 50
	// MaxPageSize - максимальный размер страницы.
	MaxPageSize = 200
)

// GetRankingsQuery содержит параметры пагинации.
type GetRankingsQuery struct {
	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int

	// Offset - смещение от начала рейтинга.
	Offset int
}

// Validate проверяет параметры и подставляет значения по умолчанию.
func (q *GetRankingsQuery) Validate() error {
	if q.Offset < 0 {
		return invalidQuery("offset cannot be negative")
	}
	if q.Limit < 0 {
		return invalidQuery("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return nil
}

// GetRankingsResult - страница рейтинга.
type GetRankingsResult struct {
	Entries  []RankingEntryDTO `json:"entries"`
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
	HasMore  bool              `json:"has_more"`
	Average  float64           `json:"average_score"`
	Snapshot SnapshotInfoDTO   `json:"snapshot"`
}

// GetRankingsHandler обрабатывает запрос страницы рейтинга.
type GetRankingsHandler struct {
	reader SnapshotReader
}

// NewGetRankingsHandler создаёт обработчик.
func NewGetRankingsHandler(reader SnapshotReader) *GetRankingsHandler {
	return &GetRankingsHandler{reader: reader}
}

// Handle возвращает страницу. До первого пересчёта ответ пустой, не ошибка.
func (h *GetRankingsHandler) Handle(_ context.Context, q GetRankingsQuery) (*GetRankingsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	snap := h.reader.Snapshot()
	page := snap.Page(q.Offset, q.Limit)
	total := snap.Count()

	return &GetRankingsResult{
		Entries:  NewRankingEntryDTOs(page),
		Total:    total,
		Offset:   q.Offset,
		Limit:    q.Limit,
		HasMore:  q.Offset+len(page) < total,
		Average:  snap.AverageScore(),
		Snapshot: snapshotInfo(snap),
	}, nil
}
