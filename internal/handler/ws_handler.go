package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pyqprep/mocktest-backend/internal/middleware"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/service"
	ws "github.com/pyqprep/mocktest-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// examConn serializes writes: the countdown goroutine and the read loop
// both send events over one connection.
type examConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *examConn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ws.WriteTyped(c.conn, v)
}

func (c *examConn) sendError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws.WriteError(c.conn, msg)
}

// WSHandler streams the live attempt channel: a server-side countdown tick
// every second, plus autosave/mark/submit actions from the client.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/exam/attempt/:attempt_id/stream
// Upgrades to WebSocket for the authoritative countdown and low-latency
// answer saving. Auth rides on the session cookie like every other request.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	if err := h.attemptService.VerifyOwnership(c.Request.Context(), attemptID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt not accessible"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := &examConn{conn: raw}
	userID := claims.UserID

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.countdown(ctx, conn, wsLog, attemptID)

	for {
		raw.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.sendError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, wsLog, attemptID, userID, data)
		case ws.ActionMark:
			h.handleMark(ctx, conn, wsLog, attemptID, userID, data)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, attemptID, userID)
		case ws.ActionPing:
			conn.send(ws.PongEvent{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.sendError("unknown action: " + string(envelope.Action))
		}
	}
}

// countdown pushes the authoritative remaining time once per second and
// force-submits when it reaches zero.
func (h *WSHandler) countdown(ctx context.Context, conn *examConn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		remaining, err := h.attemptService.RemainingSeconds(ctx, attemptID)
		if err != nil {
			wsLog.Warn().Err(err).Msg("Countdown lookup failed")
			continue
		}

		if err := conn.send(ws.TickEvent{Event: ws.EventTick, RemainingSeconds: remaining}); err != nil {
			return
		}

		if remaining <= 0 {
			attempt, err := h.attemptService.ForceSubmit(ctx, attemptID)
			if err != nil {
				wsLog.Error().Err(err).Msg("Deadline submit failed")
				continue
			}
			h.sendSubmitted(conn, attempt)
			return
		}
	}
}

func (h *WSHandler) handleAutosave(ctx context.Context, conn *examConn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int, data []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.sendError("malformed autosave")
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.sendError("invalid question_id format")
		return
	}

	req := &model.SaveAnswerRequest{
		QuestionID:        questionID,
		SelectedOption:    msg.SelectedOption,
		IsMarkedForReview: msg.IsMarkedForReview,
	}
	if err := h.attemptService.SaveAnswer(ctx, attemptID, userID, req); err != nil {
		wsLog.Warn().Err(err).Str("question_id", msg.QuestionID).Msg("Autosave failed")
		conn.sendError(h.actionError(err))
		return
	}

	conn.send(ws.SavedEvent{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *WSHandler) handleMark(ctx context.Context, conn *examConn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int, data []byte) {
	var msg ws.MarkRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.sendError("malformed mark")
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.sendError("invalid question_id format")
		return
	}

	if err := h.attemptService.MarkReview(ctx, attemptID, userID, questionID, msg.IsMarked); err != nil {
		wsLog.Warn().Err(err).Str("question_id", msg.QuestionID).Msg("Mark failed")
		conn.sendError(h.actionError(err))
		return
	}

	conn.send(ws.SavedEvent{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *examConn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int) {
	attempt, err := h.attemptService.Submit(ctx, attemptID, userID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		conn.sendError("submit failed")
		return
	}

	wsLog.Info().Msg("Attempt submitted")
	h.sendSubmitted(conn, attempt)
}

func (h *WSHandler) sendSubmitted(conn *examConn, attempt *model.Attempt) {
	conn.send(ws.SubmittedEvent{
		Event:       ws.EventSubmitted,
		AttemptID:   attempt.ID.String(),
		ResultsPath: fmt.Sprintf("/exam/%s/results", attempt.ID),
	})
}

func (h *WSHandler) actionError(err error) string {
	switch {
	case errors.Is(err, service.ErrNotInProgress):
		return "attempt already submitted"
	case errors.Is(err, service.ErrAttemptExpired):
		return "attempt time has expired"
	case errors.Is(err, service.ErrUnknownQuestion):
		return "question does not belong to this attempt"
	case errors.Is(err, service.ErrInvalidOption):
		return "invalid option"
	default:
		return "save failed"
	}
}
