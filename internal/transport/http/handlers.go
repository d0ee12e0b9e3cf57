package http

import (
	"net/http"
	"strconv"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	quizzes *app.QuizService
	admin   *app.AdminService
}

type submitRequest struct {
	Answers domain.Answers `json:"answers" binding:"required"`
}

func (h *handlers) getQuiz(c *gin.Context) {
	showCorrection, _ := strconv.ParseBool(c.Query("showCorrection"))
	view, err := h.quizzes.GetQuizForTaking(c.Request.Context(), c.Param("quizId"), userID(c), showCorrection)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) submitAttempt(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.quizzes.SubmitQuiz(c.Request.Context(), c.Param("quizId"), userID(c), req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handlers) history(c *gin.Context) {
	entries, err := h.quizzes.GetHistory(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handlers) correction(c *gin.Context) {
	correction, err := h.quizzes.GetCorrection(c.Request.Context(), userID(c), c.Param("attemptId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, correction)
}

func (h *handlers) listQuizzes(c *gin.Context) {
	quizzes, err := h.admin.ListQuizzes(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *handlers) createQuiz(c *gin.Context) {
	var draft domain.QuizDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quiz, err := h.admin.CreateQuiz(c.Request.Context(), c.Param("courseId"), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *handlers) adminGetQuiz(c *gin.Context) {
	quiz, err := h.admin.GetQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *handlers) updateQuiz(c *gin.Context) {
	var update domain.QuizUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quiz, err := h.admin.UpdateQuiz(c.Request.Context(), c.Param("quizId"), update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *handlers) deleteQuiz(c *gin.Context) {
	if err := h.admin.DeleteQuiz(c.Request.Context(), c.Param("quizId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listAttempts(c *gin.Context) {
	attempts, err := h.admin.ListAttempts(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}
