package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Classroom Portal API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":   "/health",
			"rankings": "/api/v1/rankings",
			"top":      "/api/v1/rankings/top",
			"students": "/api/v1/students",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Rankings.Handle(r.Context(), query.GetRankingsQuery{Limit: limit, Offset: offset})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetTopStudents(w http.ResponseWriter, r *http.Request) {
	count, err := optionalIntParam(r, "count")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Top.Handle(r.Context(), query.GetTopStudentsQuery{Count: count})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetStudentRank(w http.ResponseWriter, r *http.Request) {
	neighbors, err := intParam(r, "neighbors")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.StudentRank.Handle(r.Context(), query.GetStudentRankQuery{
		StudentID:     chi.URLParam(r, "studentID"),
		NeighborRange: neighbors,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetStudentHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.History.Handle(r.Context(), query.GetStudentHistoryQuery{
		StudentID: chi.URLParam(r, "studentID"),
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// RecalculateResponse summarises a manual recompute.
type RecalculateResponse struct {
	SnapshotID    string            `json:"snapshot_id"`
	CalculatedAt  time.Time         `json:"calculated_at"`
	TotalStudents int               `json:"total_students"`
	AverageScore  float64           `json:"average_score"`
	Orphans       []ranking.Orphan  `json:"orphans"`
	Anomalies     []ranking.Anomaly `json:"anomalies"`
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	snap, report, err := s.deps.Engine.CalculateRankings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, RecalculateResponse{
		SnapshotID:    snap.ID,
		CalculatedAt:  snap.CalculatedAt,
		TotalStudents: snap.Count(),
		AverageScore:  snap.AverageScore(),
		Orphans:       report.Orphans,
		Anomalies:     report.Anomalies,
	})
}
