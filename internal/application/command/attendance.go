package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// RecordAttendanceCommand marks one student for one session.
type RecordAttendanceCommand struct {
	StudentID string    `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Session   string    `json:"session" validate:"required,max=64"`
	Status    string    `json:"status" validate:"required,oneof=present absent late"`
	Note      string    `json:"note" validate:"max=500"`
}

// DeleteAttendanceCommand removes one ledger entry.
type DeleteAttendanceCommand struct {
	EntryID string `json:"entry_id" validate:"required"`
}

// AttendanceHandler handles Attendance Ledger commands.
type AttendanceHandler struct {
	entries   attendance.Repository
	students  student.Repository
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewAttendanceHandler creates an AttendanceHandler.
func NewAttendanceHandler(entries attendance.Repository, students student.Repository, publisher shared.EventPublisher, log *slog.Logger) *AttendanceHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AttendanceHandler{
		entries:   entries,
		students:  students,
		publisher: publisherOrNop(publisher),
		logger:    log.With(logger.Component("attendance_commands")),
	}
}

// Record upserts an attendance mark. The student must exist.
func (h *AttendanceHandler) Record(ctx context.Context, cmd RecordAttendanceCommand) (*attendance.Entry, error) {
	if err := validateCommand("record_attendance", cmd); err != nil {
		return nil, err
	}
	id := shared.StudentID(strings.TrimSpace(cmd.StudentID))
	if _, err := h.students.GetByID(ctx, id); err != nil {
		return nil, err
	}

	status, err := attendance.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	entry, err := attendance.NewEntry(id, cmd.Date, cmd.Session, status, cmd.Note)
	if err != nil {
		return nil, err
	}

	saved, err := h.entries.Record(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("record_attendance: %w", err)
	}
	h.logger.Debug("attendance recorded",
		logger.StudentID(id.String()),
		slog.String("session", saved.Session),
		slog.String("status", string(saved.Status)),
	)

	return saved, publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventAttendanceRecorded, id, saved.ID))
}

// Delete removes an entry by id.
func (h *AttendanceHandler) Delete(ctx context.Context, cmd DeleteAttendanceCommand) error {
	if err := validateCommand("delete_attendance", cmd); err != nil {
		return err
	}
	removed, err := h.entries.Delete(ctx, cmd.EntryID)
	if err != nil {
		return err
	}
	return publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventAttendanceDeleted, removed.StudentID, removed.ID))
}
