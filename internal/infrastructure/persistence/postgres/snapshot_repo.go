package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements ranking.SnapshotRepository for PostgreSQL.
type SnapshotRepository struct {
	conn *Connection
}

var _ ranking.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

const entryColumns = `student_id, student_name, photo, attendance_score, progress_score,
	quiz_score, achievement_score, total_score, rank, medal, rank_change`

// Save stores the snapshot header and batch-inserts its entries in one transaction.
func (r *SnapshotRepository) Save(ctx context.Context, s *ranking.Snapshot) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ranking_snapshots (id, calculated_at, total_students, average_score)
			VALUES ($1, $2, $3, $4)
		`, s.ID, s.CalculatedAt, s.Count(), s.AverageScore())
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.WrapError("ranking", "SaveSnapshot", shared.ErrAlreadyExists, "snapshot already stored", err)
			}
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if s.IsEmpty() {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range s.Entries {
			batch.Queue(`INSERT INTO ranking_entries (snapshot_id, `+entryColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				s.ID,
				e.StudentID.String(),
				e.StudentName,
				e.Photo,
				e.AttendanceScore,
				e.ProgressScore,
				e.QuizScore,
				e.AchievementScore,
				e.TotalScore,
				int(e.Rank),
				string(e.Medal),
				int(e.RankChange),
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range s.Entries {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert ranking entry: %w", err)
			}
		}
		return nil
	})
}

// Latest returns the newest snapshot or shared.ErrSnapshotNotFound.
func (r *SnapshotRepository) Latest(ctx context.Context) (*ranking.Snapshot, error) {
	var id string
	var at time.Time
	err := r.conn.QueryRow(ctx, `
		SELECT id, calculated_at FROM ranking_snapshots
		ORDER BY calculated_at DESC, id DESC
		LIMIT 1
	`).Scan(&id, &at)
	if IsNoRows(err) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	rows, err := r.conn.Query(ctx, `SELECT `+entryColumns+` FROM ranking_entries WHERE snapshot_id = $1 ORDER BY rank`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ranking entries: %w", err)
	}
	return ranking.NewSnapshot(id, at.UTC(), entries), nil
}

// History returns the student's positions, newest first.
func (r *SnapshotRepository) History(ctx context.Context, id shared.StudentID, limit int) ([]ranking.HistoryPoint, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.conn.Query(ctx, `
		SELECT s.id, s.calculated_at, e.rank, e.total_score, e.rank_change
		FROM ranking_entries e
		JOIN ranking_snapshots s ON s.id = e.snapshot_id
		WHERE e.student_id = $1
		ORDER BY s.calculated_at DESC, s.id DESC
		LIMIT $2
	`, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank history: %w", err)
	}
	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ranking.HistoryPoint, error) {
		var p ranking.HistoryPoint
		var rank, change int
		err := row.Scan(&p.SnapshotID, &p.CalculatedAt, &rank, &p.TotalScore, &change)
		p.Rank = ranking.Rank(rank)
		p.RankChange = ranking.RankChange(change)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rank history: %w", err)
	}
	return points, nil
}

// Prune deletes snapshots older than olderThan while keeping the newest keep.
func (r *SnapshotRepository) Prune(ctx context.Context, olderThan time.Time, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	tag, err := r.conn.Exec(ctx, `
		DELETE FROM ranking_snapshots
		WHERE calculated_at < $1
		  AND id NOT IN (
			SELECT id FROM ranking_snapshots
			ORDER BY calculated_at DESC, id DESC
			LIMIT $2
		  )
	`, olderThan, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.CollectableRow) (*ranking.Entry, error) {
	var e ranking.Entry
	var studentID, medal string
	var rank, change int
	err := row.Scan(
		&studentID,
		&e.StudentName,
		&e.Photo,
		&e.AttendanceScore,
		&e.ProgressScore,
		&e.QuizScore,
		&e.AchievementScore,
		&e.TotalScore,
		&rank,
		&medal,
		&change,
	)
	if err != nil {
		return nil, err
	}
	e.StudentID = shared.StudentID(studentID)
	e.Rank = ranking.Rank(rank)
	e.Medal = ranking.Medal(medal)
	e.RankChange = ranking.RankChange(change)
	return &e, nil
}
