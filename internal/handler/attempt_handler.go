package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pyqprep/mocktest-backend/internal/export"
	"github.com/pyqprep/mocktest-backend/internal/middleware"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/repository"
	"github.com/pyqprep/mocktest-backend/internal/response"
	"github.com/pyqprep/mocktest-backend/internal/service"
	"github.com/pyqprep/mocktest-backend/internal/validator"
)

// AttemptHandler handles the exam-taking endpoints: set catalog,
// start/resume, the attempt snapshot, answer and mark mutations, submit,
// and results.
type AttemptHandler struct {
	attemptService *service.AttemptService
	setRepo        *repository.ExamSetRepository
	attemptRepo    *repository.AttemptRepository
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	setRepo *repository.ExamSetRepository,
	attemptRepo *repository.AttemptRepository,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		setRepo:        setRepo,
		attemptRepo:    attemptRepo,
	}
}

// ListSets godoc
// GET /api/v1/exam/sets
// Returns the catalog of attemptable exam sets.
func (h *AttemptHandler) ListSets(c *gin.Context) {
	sets, err := h.setRepo.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam_sets": sets})
}

// StartAttempt godoc
// POST /api/v1/exam/sets/:set_id/start
// Starts a new attempt on the set, or resumes the caller's in-progress one.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	setID, err := uuid.Parse(c.Param("set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.UserID, setID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrSetNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetAttempt godoc
// GET /api/v1/exam/attempt/:attempt_id
// Returns the full snapshot the exam interface boots from: ordered
// questions, prior responses, set metadata and elapsed time.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	snap, err := h.attemptService.Snapshot(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": snap})
}

// SaveAnswer godoc
// POST /api/v1/exam/attempt/:attempt_id/answer
// Saves one answer. A null selected_option clears the response.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, claims.UserID, &req); err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID})
}

// MarkReview godoc
// POST /api/v1/exam/attempt/:attempt_id/mark-review?question_id=...&is_marked=...
// Toggles the marked-for-review flag on one question.
func (h *AttemptHandler) MarkReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	var q model.MarkReviewQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.MarkReview(c.Request.Context(), attemptID, claims.UserID, q.QuestionID, q.IsMarked); err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": q.QuestionID, "is_marked": q.IsMarked})
}

// Submit godoc
// POST /api/v1/exam/attempt/:attempt_id/submit
// Finalizes the attempt. Idempotent: submitting twice succeeds once.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt":      attempt,
		"results_path": fmt.Sprintf("/exam/%s/results", attempt.ID),
	})
}

// Results godoc
// GET /api/v1/exam/attempt/:attempt_id/results
// Returns the result summary. Score is null until grading completes.
func (h *AttemptHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := h.attemptID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Results(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ExportSetResults godoc
// GET /api/v1/exam/sets/:set_id/export
// Streams the set's attempt results as an xlsx workbook.
func (h *AttemptHandler) ExportSetResults(c *gin.Context) {
	setID, err := uuid.Parse(c.Param("set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	set, err := h.setRepo.GetByID(c.Request.Context(), setID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSetNotFound)
		return
	}

	results, err := h.attemptRepo.ListBySet(c.Request.Context(), setID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, setID))
	if err := export.WriteSetResults(c.Writer, set, results); err != nil {
		// Headers are already out; nothing useful left to send.
		c.Abort()
	}
}

func (h *AttemptHandler) attemptID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failAttempt maps attempt service errors onto the API error envelope.
func (h *AttemptHandler) failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
	case errors.Is(err, service.ErrAttemptExpired):
		response.Fail(c, http.StatusConflict, response.ErrAttemptExpired)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
