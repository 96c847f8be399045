package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/session"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 5 * time.Second
	keepAliveInterval = 30 * time.Second
)

// MonitorHandler streams live session state to proctoring admins over SSE.
type MonitorHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(sessionService *service.SessionService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/admin/exams/:exam_id/monitor
// Pushes periodic snapshots of the exam's live sessions: phase, remaining
// time, and answered counts per participant.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	reqCtx := c.Request.Context()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()
	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Int64("exam_id", examID).Msg("Admin attached to live monitor SSE")
	h.sendSnapshot(c, examID)

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int64("exam_id", examID).Msg("Admin detached from live monitor SSE")
			return
		case <-refreshTicker.C:
			h.sendSnapshot(c, examID)
		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, examID int64) {
	all := h.sessionService.Snapshots()
	sessions := make([]session.Snapshot, 0, len(all))
	active := 0
	for _, snap := range all {
		if snap.ExamID != examID {
			continue
		}
		if snap.Phase == session.PhaseActive || snap.Phase == session.PhaseExitConfirmPending {
			active++
		}
		sessions = append(sessions, snap)
	}

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam_id":  examID,
			"live":     len(sessions),
			"active":   active,
			"sessions": sessions,
		},
	})
	c.Writer.Flush()
}
